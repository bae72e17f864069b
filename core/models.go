package core

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Field is a single named value in a Row.
type Field struct {
	Name  string
	Value any
}

// Row is one record destined for a single table row.
// Field order is significant: it determines statement parameter order.
type Row []Field

// NewRow builds a Row from parallel column and value slices.
func NewRow(columns []string, values []any) (Row, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("%w: %d columns but %d values", ErrInvalidArgument, len(columns), len(values))
	}
	row := make(Row, len(columns))
	for i := range columns {
		row[i] = Field{Name: columns[i], Value: values[i]}
	}
	return row, nil
}

// Columns returns the column names in row order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, f := range r {
		cols[i] = f.Name
	}
	return cols
}

// Values returns the values in row order.
func (r Row) Values() []any {
	vals := make([]any, len(r))
	for i, f := range r {
		vals[i] = f.Value
	}
	return vals
}

// Get returns the value stored under name.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Dataset is an ordered sequence of rows sharing one column layout.
type Dataset []Row

// Columns returns the column layout fixed by the first row.
func (d Dataset) Columns() []string {
	if len(d) == 0 {
		return nil
	}
	return d[0].Columns()
}

// Chunk is the contiguous, half-open slice [Start, End) of a dataset
// assigned to one worker.
type Chunk struct {
	Index int
	Start int
	End   int
}

// Len returns the number of rows in the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// IsEmpty reports whether the chunk holds no rows.
func (c Chunk) IsEmpty() bool {
	return c.End <= c.Start
}

// Range is a half-open range [Start, End) of dataset indexes.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indexes covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether other lies entirely within r.
func (r Range) Contains(other Range) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// MergeRanges returns rs sorted by start with overlapping and adjacent ranges
// joined. Empty ranges are dropped. rs is not modified.
func MergeRanges(rs []Range) []Range {
	sorted := make([]Range, 0, len(rs))
	for _, r := range rs {
		if r.Len() > 0 {
			sorted = append(sorted, r)
		}
	}
	slices.SortFunc(sorted, func(a, b Range) int {
		return cmp.Compare(a.Start, b.Start)
	})

	merged := make([]Range, 0, len(sorted))
	for _, r := range sorted {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End {
			merged[n-1].End = max(merged[n-1].End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// Covered reports whether r lies entirely within one of the merged ranges.
// merged must be the output of MergeRanges.
func Covered(r Range, merged []Range) bool {
	// first range whose end is past r.Start
	i, _ := slices.BinarySearchFunc(merged, r.Start, func(m Range, start int) int {
		if m.End <= start {
			return -1
		}
		return 1
	})
	return i < len(merged) && merged[i].Contains(r)
}

// Report summarizes one bulk ingestion.
type Report struct {
	Keyspace      string
	Table         string
	CommittedRows int
	TotalRows     int
	SkippedRows   int // already committed by a previous run with the same run ID
	Workers       int
	FailedWorkers int
	Elapsed       time.Duration
	Aborted       bool
}

// ElapsedSeconds returns the wall time of the ingestion in seconds.
func (r *Report) ElapsedSeconds() float64 {
	return r.Elapsed.Seconds()
}

// Throughput returns committed rows per second.
func (r *Report) Throughput() float64 {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.CommittedRows) / secs
}

// Err returns nil for a complete ingestion, and an error wrapping
// ErrIngestionAborted otherwise.
func (r *Report) Err() error {
	if !r.Aborted {
		return nil
	}
	return fmt.Errorf("%w: committed %d of %d rows", ErrIngestionAborted, r.CommittedRows, r.TotalRows)
}
