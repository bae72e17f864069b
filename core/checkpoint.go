package core

//go:generate go run ../cmd/musgen

// CheckpointEntry is the stored value of a committed range, keyed by the
// range start.
type CheckpointEntry struct {
	End int64
}

// RunBinding ties a checkpoint run to the dataset it was started with.
type RunBinding struct {
	Fingerprint Fingerprint
	Rows        int64
}

// NewRunBinding returns the binding of d.
func NewRunBinding(d Dataset) RunBinding {
	return RunBinding{Fingerprint: DatasetFingerprint(d), Rows: int64(len(d))}
}
