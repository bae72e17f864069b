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

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/bulkload/core"
	"github.com/poiesic/bulkload/storage"
)

// CheckpointRepository implements storage.CheckpointRepository for BadgerDB.
type CheckpointRepository struct {
	backend *Backend
	owned   bool
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a CheckpointRepository on an open backend.
// Closing the repository leaves the backend open.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{
		backend: backend,
	}
}

// OpenCheckpointRepository opens a backend at dir and returns a repository
// owning it.
func OpenCheckpointRepository(dir string, logger *slog.Logger) (*CheckpointRepository, error) {
	backend, err := OpenBackend(dir, false, logger)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint store %s: %w", dir, err)
	}
	return &CheckpointRepository{backend: backend, owned: true}, nil
}

// BindDataset stores binding for runID on first use and compares against
// it afterwards.
func (r *CheckpointRepository) BindDataset(ctx context.Context, runID string, binding core.RunBinding) error {
	if err := validateRunID(runID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := makeFingerprintKey(runID)
	return r.backend.WithTx(func(tx *badger.Txn) error {
		stored, found, err := getBinding(tx, key)
		if err != nil {
			return err
		}
		if !found {
			if err := tx.Set(key, storage.MarshalRunBinding(binding)); err != nil {
				return err
			}
			return tx.Commit()
		}
		if stored != binding {
			return fmt.Errorf("%w: run %s was started with dataset %016x (%d rows), got %016x (%d rows)",
				storage.ErrDatasetMismatch, runID,
				uint64(stored.Fingerprint), stored.Rows, uint64(binding.Fingerprint), binding.Rows)
		}
		return nil
	}, true)
}

// Binding returns the dataset binding of runID, if it has one.
func (r *CheckpointRepository) Binding(ctx context.Context, runID string) (core.RunBinding, bool, error) {
	if err := validateRunID(runID); err != nil {
		return core.RunBinding{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return core.RunBinding{}, false, err
	}

	var (
		binding core.RunBinding
		found   bool
	)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		binding, found, err = getBinding(tx, makeFingerprintKey(runID))
		return err
	}, false)
	return binding, found, err
}

func getBinding(tx *badger.Txn, key []byte) (core.RunBinding, bool, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return core.RunBinding{}, false, nil
	}
	if err != nil {
		return core.RunBinding{}, false, err
	}

	var binding core.RunBinding
	err = item.Value(func(val []byte) error {
		var err error
		binding, err = storage.UnmarshalRunBinding(val)
		return err
	})
	if err != nil {
		return core.RunBinding{}, false, err
	}
	return binding, true, nil
}

// MarkCommitted records that rows in rng were committed for runID.
// If a range with the same start already exists, the longer one wins.
func (r *CheckpointRepository) MarkCommitted(ctx context.Context, runID string, rng core.Range) error {
	if err := validateRunID(runID); err != nil {
		return err
	}
	if rng.Start < 0 || rng.Len() <= 0 {
		return fmt.Errorf("%w: range [%d, %d)", core.ErrInvalidArgument, rng.Start, rng.End)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRangeKey(runID, rng.Start)
		end := rng.End

		item, err := tx.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				prev, err := storage.UnmarshalCheckpointEntry(val)
				if err != nil {
					return err
				}
				end = max(end, int(prev.End))
				return nil
			}); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		if err := tx.Set(key, storage.MarshalCheckpointEntry(core.CheckpointEntry{End: int64(end)})); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CommittedRanges returns the merged committed ranges for runID.
func (r *CheckpointRepository) CommittedRanges(ctx context.Context, runID string) ([]core.Range, error) {
	if err := validateRunID(runID); err != nil {
		return nil, err
	}

	var ranges []core.Range
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRunPrefix(runID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			_, start, err := parseRangeKey(item.Key())
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				entry, err := storage.UnmarshalCheckpointEntry(val)
				if err != nil {
					return err
				}
				ranges = append(ranges, core.Range{Start: start, End: int(entry.End)})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return core.MergeRanges(ranges), nil
}

// ClearRun removes every range recorded for runID, and its dataset
// fingerprint.
func (r *CheckpointRepository) ClearRun(ctx context.Context, runID string) error {
	if err := validateRunID(runID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var keys [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRunPrefix(runID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	if err != nil {
		return err
	}
	keys = append(keys, makeFingerprintKey(runID))

	wb := r.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Runs returns the IDs of every run with a recorded range or a dataset
// binding, in lexical order.
func (r *CheckpointRepository) Runs(ctx context.Context) ([]string, error) {
	var runs []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ranged, err := scanRunIDs(ctx, tx, checkpointPrefix, func(key []byte) (string, error) {
			runID, _, err := parseRangeKey(key)
			return runID, err
		})
		if err != nil {
			return err
		}
		bound, err := scanRunIDs(ctx, tx, fingerprintPrefix, func(key []byte) (string, error) {
			return parseFingerprintKey(key), nil
		})
		if err != nil {
			return err
		}
		runs = append(ranged, bound...)
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	slices.Sort(runs)
	return slices.Compact(runs), nil
}

// scanRunIDs returns the run ID of every key under prefix.
func scanRunIDs(ctx context.Context, tx *badger.Txn, prefix string, parse func([]byte) (string, error)) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var runs []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		runID, err := parse(iter.Item().Key())
		if err != nil {
			return nil, err
		}
		runs = append(runs, runID)
	}
	return runs, nil
}

// Close closes the underlying backend if the repository opened it.
func (r *CheckpointRepository) Close() error {
	if !r.owned || r.backend.IsClosed() {
		return nil
	}
	return r.backend.Close()
}
