package badger

import "log/slog"

// NewMemoryCheckpoints creates an in-memory checkpoint repository for testing.
// Closing the repository closes its backend.
func NewMemoryCheckpoints() (*CheckpointRepository, error) {
	backend, err := OpenBackend("", true, slog.Default())
	if err != nil {
		return nil, err
	}
	return &CheckpointRepository{backend: backend, owned: true}, nil
}
