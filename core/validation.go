// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"slices"
)

// ValidateDataset checks that a dataset can be ingested.
//
// Validation rules:
//   - the dataset must contain at least one row
//   - the first row must have at least one column
//   - column names must be non-empty and distinct
//   - every row must carry the first row's columns in the same order
//
// Values are not inspected; type compatibility with the target table is
// left to the database.
func ValidateDataset(dataset Dataset) error {
	if len(dataset) == 0 {
		return fmt.Errorf("%w: dataset is empty", ErrInvalidArgument)
	}

	columns := dataset[0].Columns()
	if err := ValidateColumns(columns); err != nil {
		return fmt.Errorf("%w: row 0: %w", ErrInvalidArgument, err)
	}

	for i, row := range dataset[1:] {
		if !sameColumns(columns, row) {
			return fmt.Errorf("%w: row %d has columns %v, expected %v",
				ErrInvalidArgument, i+1, row.Columns(), columns)
		}
	}

	return nil
}

// ValidateRow checks a single row for SingleIngest.
func ValidateRow(row Row) error {
	if err := ValidateColumns(row.Columns()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}

// ValidateColumns checks a column list used to build an insert statement.
func ValidateColumns(columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if c == "" {
			return fmt.Errorf("%w: column %d has an empty name", ErrInvalidSchema, i)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidSchema, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

func sameColumns(columns []string, row Row) bool {
	if len(row) != len(columns) {
		return false
	}
	return slices.EqualFunc(columns, row, func(c string, f Field) bool {
		return c == f.Name
	})
}
