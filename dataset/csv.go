package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/poiesic/bulkload/core"
)

// ReadCSV reads a CSV stream whose first record is the header.
// Every row takes the header's column order. Values are kept as strings.
func ReadCSV(r io.Reader) (core.Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing CSV header", core.ErrInvalidSchema)
		}
		return nil, err
	}
	if err := core.ValidateColumns(header); err != nil {
		return nil, err
	}

	var ds core.Dataset
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(core.Row, len(header))
		for i, name := range header {
			row[i] = core.Field{Name: name, Value: record[i]}
		}
		ds = append(ds, row)
	}
	return ds, nil
}
