package badger

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/poiesic/bulkload/storage"
)

// Checkpoint keys have the form ckpt:<runID>:<start>, start being an 8-byte
// big-endian integer so ranges of one run iterate in dataset order.
// The value is a core.CheckpointEntry holding the end of the range.
//
// The core.RunBinding of a run is stored under fp:<runID>.
const (
	checkpointPrefix  = "ckpt:"
	fingerprintPrefix = "fp:"
	offsetSize        = 8
)

func validateRunID(runID string) error {
	if runID == "" || strings.Contains(runID, ":") {
		return fmt.Errorf("%w: %q", storage.ErrInvalidRunID, runID)
	}
	return nil
}

// makeRunPrefix generates the prefix shared by every range of a run.
// Format: ckpt:runID:
func makeRunPrefix(runID string) []byte {
	return []byte(checkpointPrefix + runID + ":")
}

// makeRangeKey generates the key for the range starting at start.
// Format: ckpt:runID:start
func makeRangeKey(runID string, start int) []byte {
	prefix := makeRunPrefix(runID)
	buf := make([]byte, len(prefix)+offsetSize)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(start))
	return buf
}

// makeFingerprintKey generates the key holding a run's dataset fingerprint.
// Format: fp:runID
func makeFingerprintKey(runID string) []byte {
	return []byte(fingerprintPrefix + runID)
}

// parseFingerprintKey returns the run ID of a fingerprint key.
func parseFingerprintKey(key []byte) string {
	return string(key[len(fingerprintPrefix):])
}

// parseRangeKey splits a range key into its run ID and start offset.
func parseRangeKey(key []byte) (string, int, error) {
	if len(key) < len(checkpointPrefix)+offsetSize+1 {
		return "", 0, storage.ErrTruncatedData
	}
	runPart := key[len(checkpointPrefix) : len(key)-offsetSize-1]
	start := binary.BigEndian.Uint64(key[len(key)-offsetSize:])
	return string(runPart), int(start), nil
}
