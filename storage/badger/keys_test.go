package badger

import (
	"testing"

	"github.com/poiesic/bulkload/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeKey_RoundTrip(t *testing.T) {
	key := makeRangeKey("nightly-7", 1<<40)
	runID, start, err := parseRangeKey(key)
	require.NoError(t, err)
	assert.Equal(t, "nightly-7", runID)
	assert.Equal(t, 1<<40, start)
}

func TestRangeKey_SortsByStart(t *testing.T) {
	a := makeRangeKey("r", 255)
	b := makeRangeKey("r", 256)
	assert.Less(t, string(a), string(b))
}

func TestParseRangeKey_Truncated(t *testing.T) {
	_, _, err := parseRangeKey([]byte("ckpt:r"))
	assert.ErrorIs(t, err, storage.ErrTruncatedData)
}

func TestFingerprintKey_RoundTrip(t *testing.T) {
	key := makeFingerprintKey("nightly-7")
	assert.Equal(t, "fp:nightly-7", string(key))
	assert.Equal(t, "nightly-7", parseFingerprintKey(key))
}

func TestValidateRunID(t *testing.T) {
	assert.NoError(t, validateRunID("run-1"))
	assert.ErrorIs(t, validateRunID(""), storage.ErrInvalidRunID)
	assert.ErrorIs(t, validateRunID("a:b"), storage.ErrInvalidRunID)
}
