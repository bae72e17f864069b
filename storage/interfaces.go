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

package storage

import (
	"context"

	"github.com/poiesic/bulkload/core"
)

// PreparedStatement is a statement the session has accepted for repeated
// execution with different parameter tuples.
type PreparedStatement interface {
	// Statement returns the CQL text the statement was prepared from.
	Statement() string
}

// Session is a connection to the target database.
// A Session is owned by a single ingestion worker and must not be shared
// between workers.
type Session interface {
	// Prepare readies statement for repeated execution.
	Prepare(ctx context.Context, statement string) (PreparedStatement, error)

	// ExecuteConcurrent executes prepared once per parameter tuple, running at
	// most concurrency executions at a time.
	// Returns the first execution error; other executions may have committed.
	ExecuteConcurrent(ctx context.Context, prepared PreparedStatement, params [][]any, concurrency int) error

	// Execute runs a single statement with positional values.
	Execute(ctx context.Context, statement string, values ...any) error

	// Close releases the session. Closing twice is a no-op.
	Close() error
}

// SessionProvider hands out new, independently owned sessions.
type SessionProvider interface {
	// NewSession opens a ready, authenticated session.
	NewSession(ctx context.Context) (Session, error)
}

// CheckpointRepository journals dataset ranges that were committed by a run,
// so a rerun with the same run ID can skip them.
type CheckpointRepository interface {
	// BindDataset records binding as the dataset of runID, or checks it
	// against the one already recorded.
	// Returns ErrDatasetMismatch if runID was started with another dataset.
	BindDataset(ctx context.Context, runID string, binding core.RunBinding) error

	// MarkCommitted records that rows in r were committed for runID.
	MarkCommitted(ctx context.Context, runID string, r core.Range) error

	// CommittedRanges returns the committed ranges for runID, sorted by start
	// and with overlapping or adjacent ranges merged.
	// Returns an empty slice for an unknown run.
	CommittedRanges(ctx context.Context, runID string) ([]core.Range, error)

	// ClearRun removes every range recorded for runID.
	ClearRun(ctx context.Context, runID string) error

	// Runs lists the run IDs that have committed ranges or a dataset
	// binding, sorted.
	Runs(ctx context.Context) ([]string, error)

	// Close closes the repository.
	Close() error
}
