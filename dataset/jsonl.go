package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/poiesic/bulkload/core"
)

const maxLineSize = 16 * 1024 * 1024

// ReadJSONLines reads one JSON object per line. Blank lines are skipped.
func ReadJSONLines(r io.Reader) (core.Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var ds core.Dataset
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		row, err := ParseRow(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds = append(ds, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}

// ParseRow decodes a JSON object into a Row, keeping key order.
func ParseRow(data []byte) (core.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", core.ErrInvalidArgument)
	}

	var row core.Row
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name := tok.(string)

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		value, err := convert(raw)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		row = append(row, core.Field{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", core.ErrInvalidArgument)
	}
	return row, nil
}

// convert maps decoded JSON onto driver-friendly Go values:
// integers to int64, other numbers to float64, numeric arrays to []float32.
func convert(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	case []any:
		if vec, ok := toVector(t); ok {
			return vec, nil
		}
		out := make([]any, len(t))
		for i, e := range t {
			c, err := convert(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			c, err := convert(e)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	default:
		return v, nil
	}
}

func toVector(values []any) ([]float32, bool) {
	if len(values) == 0 {
		return nil, false
	}
	vec := make([]float32, len(values))
	for i, e := range values {
		n, ok := e.(json.Number)
		if !ok {
			return nil, false
		}
		f, err := n.Float64()
		if err != nil {
			return nil, false
		}
		vec[i] = float32(f)
	}
	return vec, true
}
