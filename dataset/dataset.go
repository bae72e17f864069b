// Package dataset reads row files into a core.Dataset.
//
// Two formats are supported, chosen by file extension:
//   - .csv: the header row names the columns; every value is a string
//   - .jsonl / .ndjson: one JSON object per line; key order is preserved
//     and numeric arrays become []float32 vectors
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/bulkload/core"
)

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// Load reads the dataset at path, choosing the reader from its extension.
func Load(path string) (core.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".jsonl", ".ndjson":
		return ReadJSONLines(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
