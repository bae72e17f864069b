package ingestion

import (
	"fmt"

	"github.com/poiesic/bulkload/core"
)

// Partition splits n rows into exactly workers contiguous chunks in
// ascending order. Chunk sizes are n/workers or n/workers+1; the first
// n%workers chunks take the extra row. Chunks may be empty when n < workers.
func Partition(n, workers int) ([]core.Chunk, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", core.ErrInvalidArgument, workers)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: row count must not be negative, got %d", core.ErrInvalidArgument, n)
	}

	size, extra := n/workers, n%workers
	chunks := make([]core.Chunk, workers)
	start := 0
	for i := range chunks {
		end := start + size
		if i < extra {
			end++
		}
		chunks[i] = core.Chunk{Index: i, Start: start, End: end}
		start = end
	}
	return chunks, nil
}
