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

import "errors"

// Ingestion errors
var (
	// ErrInvalidArgument indicates malformed input: an empty dataset, rows with
	// differing columns, or a non-positive worker or concurrency count.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidSchema indicates an insert statement cannot be built from the
	// given keyspace, table and columns.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrBatchExecution indicates a batch failed to execute against the database.
	ErrBatchExecution = errors.New("batch execution failed")

	// ErrIngestionAborted indicates a worker exhausted its retries and the
	// ingestion finished with rows left uncommitted.
	ErrIngestionAborted = errors.New("ingestion aborted")
)
