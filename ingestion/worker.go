package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/bulkload/core"
	"github.com/poiesic/bulkload/storage"
)

// run is the state shared by the workers of one BulkIngest call.
type run struct {
	table       string
	statement   string
	dataset     core.Dataset
	concurrency int
	counter     *ProgressCounter
	abort       *AbortFlag
	committed   []core.Range // merged ranges from the checkpoint journal
	skipped     atomic.Int64
	failed      atomic.Int64
}

// worker commits one chunk of the dataset over its own session.
type worker struct {
	id    int
	chunk core.Chunk
	run   *run

	provider    storage.SessionProvider
	retry       retryPolicy
	recorder    Recorder
	checkpoints storage.CheckpointRepository
	runID       string
	logger      *slog.Logger
}

// process commits the chunk batch by batch.
// It returns nil when the chunk is done or the abort flag stopped it, and an
// error when the worker failed permanently.
func (w *worker) process(ctx context.Context) (err error) {
	if w.run.abort.IsSet() {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()

	w.recorder.WorkerStarted(w.run.table)
	defer w.recorder.WorkerStopped(w.run.table)

	session, err := w.provider.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			w.logger.Warn("error closing session", "err", cerr)
		}
	}()

	prepared, err := session.Prepare(ctx, w.run.statement)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}

	rows := w.run.dataset[w.chunk.Start:w.chunk.End]
	params := make([][]any, len(rows))
	for i, row := range rows {
		params[i] = row.Values()
	}

	for start := w.chunk.Start; start < w.chunk.End; start += w.run.concurrency {
		if w.run.abort.IsSet() {
			w.logger.Debug("abort flag set, stopping", "committed_through", start)
			return nil
		}

		rng := core.Range{Start: start, End: min(start+w.run.concurrency, w.chunk.End)}
		if core.Covered(rng, w.run.committed) {
			w.run.skipped.Add(int64(rng.Len()))
			w.run.counter.Add(rng.Len())
			continue
		}

		batch := params[rng.Start-w.chunk.Start : rng.End-w.chunk.Start]
		if err := w.commit(ctx, session, prepared, rng, batch); err != nil {
			return err
		}
	}

	return nil
}

// commit executes one batch with retries and records its outcome.
func (w *worker) commit(ctx context.Context, session storage.Session, prepared storage.PreparedStatement, rng core.Range, batch [][]any) error {
	began := time.Now()
	err := w.retry.do(ctx, func() error {
		return session.ExecuteConcurrent(ctx, prepared, batch, w.run.concurrency)
	}, func(attempt int, err error) {
		w.logger.Warn("batch attempt failed",
			"start", rng.Start, "end", rng.End,
			"attempt", attempt, "max_attempts", w.retry.maxAttempts, "err", err)
		if attempt < w.retry.maxAttempts {
			w.recorder.BatchRetried(w.run.table, attempt, err)
		}
	})
	if err != nil {
		w.recorder.BatchFailed(w.run.table, err)
		return fmt.Errorf("%w: rows [%d, %d): %w", core.ErrBatchExecution, rng.Start, rng.End, err)
	}

	w.run.counter.Add(rng.Len())
	w.recorder.BatchCommitted(w.run.table, rng.Len(), time.Since(began))

	if w.checkpoints != nil {
		if err := w.checkpoints.MarkCommitted(ctx, w.runID, rng); err != nil {
			w.logger.Warn("error recording checkpoint", "start", rng.Start, "end", rng.End, "err", err)
		}
	}
	return nil
}
