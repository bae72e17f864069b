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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/bulkload/core"
	"github.com/poiesic/bulkload/logging"
	"github.com/poiesic/bulkload/storage"
)

// Ingester coordinates bulk and single-row ingestion into one cluster.
// It is safe for concurrent use; concurrent BulkIngest calls share the
// worker pool.
type Ingester struct {
	provider           storage.SessionProvider
	pool               *ants.Pool
	workers            int
	retry              retryPolicy
	policy             AbortPolicy
	monitorInterval    time.Duration
	monitorJoinTimeout time.Duration
	progress           io.Writer
	recorder           Recorder
	checkpoints        storage.CheckpointRepository
	runID              string
	logger             *slog.Logger

	mu     sync.Mutex
	shared storage.Session // lazily opened for SingleIngest
	closed atomic.Bool
}

// NewIngester creates an Ingester that opens sessions from provider.
func NewIngester(provider storage.SessionProvider, opts ...Option) (*Ingester, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}

	in := &Ingester{
		provider: provider,
		workers:  runtime.NumCPU(),
		retry: retryPolicy{
			maxAttempts: DefaultMaxRetries,
			baseDelay:   DefaultRetryDelay,
		},
		policy:             FailFast,
		monitorInterval:    DefaultMonitorInterval,
		monitorJoinTimeout: DefaultMonitorJoinTimeout,
		progress:           io.Discard,
		recorder:           noopRecorder{},
		logger:             slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(in); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(in.workers,
		ants.WithLogger(logging.NewPrintf(in.logger)),
		ants.WithPanicHandler(func(p any) {
			in.logger.Error("worker pool task panicked", "panic", p)
		}),
	)
	if err != nil {
		return nil, err
	}
	in.pool = pool

	return in, nil
}

// BulkIngest loads every row of dataset into keyspace.table.
//
// The dataset is partitioned across the configured workers; each worker
// commits its chunk in batches of concurrency rows executed concurrently.
// Invalid input is rejected before any session is opened. Once workers have
// started, failures are reported through the returned Report, never as an
// error: Report.Aborted is set when fewer rows were committed than the
// dataset holds. Cancelling ctx stops workers before their next batch.
func (in *Ingester) BulkIngest(ctx context.Context, dataset core.Dataset, keyspace, table string, concurrency int) (*core.Report, error) {
	if in.closed.Load() {
		return nil, ErrIngesterClosed
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("%w: concurrency must be positive, got %d", core.ErrInvalidArgument, concurrency)
	}
	if keyspace == "" {
		return nil, fmt.Errorf("%w: keyspace is empty", core.ErrInvalidArgument)
	}
	if err := core.ValidateDataset(dataset); err != nil {
		return nil, err
	}

	statement, err := BuildInsertStatement(keyspace, table, dataset.Columns())
	if err != nil {
		return nil, err
	}

	chunks, err := Partition(len(dataset), in.workers)
	if err != nil {
		return nil, err
	}

	logger := in.logger.With("keyspace", keyspace, "table", table)

	var committed []core.Range
	if in.checkpoints != nil {
		if err := in.checkpoints.BindDataset(ctx, in.runID, core.NewRunBinding(dataset)); err != nil {
			return nil, err
		}
		committed, err = in.checkpoints.CommittedRanges(ctx, in.runID)
		if err != nil {
			return nil, fmt.Errorf("loading checkpoints for run %s: %w", in.runID, err)
		}
		logger = logger.With("run_id", in.runID)
	}

	r := &run{
		table:       table,
		statement:   statement,
		dataset:     dataset,
		concurrency: concurrency,
		counter:     &ProgressCounter{},
		abort:       NewAbortFlag(),
		committed:   committed,
	}

	active := 0
	for _, c := range chunks {
		if !c.IsEmpty() {
			active++
		}
	}
	logger.Info("starting bulk ingestion",
		"rows", len(dataset), "workers", active, "concurrency", concurrency,
		"max_retries", in.retry.maxAttempts, "policy", in.policy.String())

	start := time.Now()
	tracker := NewProgressTracker(in.progress, len(dataset))
	tracker.Start()
	mon := newMonitor(r.counter, len(dataset), r.abort, in.monitorInterval, tracker)
	go mon.run()

	stop := context.AfterFunc(ctx, func() {
		if r.abort.Set(context.Cause(ctx)) {
			logger.Warn("ingestion canceled", "err", context.Cause(ctx))
		}
	})

	var wg sync.WaitGroup
	for _, chunk := range chunks {
		if chunk.IsEmpty() {
			continue
		}
		w := &worker{
			id:          chunk.Index,
			chunk:       chunk,
			run:         r,
			provider:    in.provider,
			retry:       in.retry,
			recorder:    in.recorder,
			checkpoints: in.checkpoints,
			runID:       in.runID,
			logger:      logger.With("worker", chunk.Index),
		}

		wg.Add(1)
		err := in.pool.Submit(func() {
			defer wg.Done()
			in.finishWorker(ctx, w, w.process(ctx))
		})
		if err != nil {
			wg.Done()
			in.finishWorker(ctx, w, fmt.Errorf("submitting worker: %w", err))
		}
	}
	wg.Wait()
	stop()

	// Releases the monitor if the run ended short of the total.
	r.abort.Set(nil)
	if !mon.wait(in.monitorJoinTimeout) {
		logger.Warn("progress monitor did not stop in time", "timeout", in.monitorJoinTimeout)
	}
	tracker.Finish()

	report := &core.Report{
		Keyspace:      keyspace,
		Table:         table,
		CommittedRows: int(r.counter.Load()),
		TotalRows:     len(dataset),
		SkippedRows:   int(r.skipped.Load()),
		Workers:       active,
		FailedWorkers: int(r.failed.Load()),
		Elapsed:       time.Since(start),
	}
	report.Aborted = report.CommittedRows != report.TotalRows

	in.summarize(logger, tracker, report)
	in.recorder.IngestionFinished(report)
	return report, nil
}

// finishWorker escalates a worker failure according to the abort policy.
func (in *Ingester) finishWorker(ctx context.Context, w *worker, err error) {
	if err == nil {
		return
	}
	if ctx.Err() != nil && (errors.Is(err, ctx.Err()) || errors.Is(err, context.Cause(ctx))) {
		w.logger.Debug("worker stopped by cancellation")
		return
	}

	w.run.failed.Add(1)
	w.logger.Error("worker failed", "chunk_start", w.chunk.Start, "chunk_end", w.chunk.End, "err", err)
	if in.policy == FailFast {
		if w.run.abort.Set(err) {
			w.logger.Warn("aborting ingestion")
		}
	}
}

// summarize writes the human-readable outcome of a run through tracker, which
// a monitor that missed its join timeout may still be writing to.
func (in *Ingester) summarize(logger *slog.Logger, tracker *ProgressTracker, report *core.Report) {
	if report.Aborted {
		tracker.Printf("Aborted due to repeated failures. Processed %d/%d records.\n",
			report.CommittedRows, report.TotalRows)
		logger.Error("bulk ingestion aborted",
			"committed", report.CommittedRows, "total", report.TotalRows,
			"failed_workers", report.FailedWorkers, "elapsed", report.Elapsed)
		return
	}

	tracker.Printf("Done running %d operations in %.2f seconds.\n",
		report.CommittedRows, report.ElapsedSeconds())
	tracker.Printf("Throughput: %.2f ops/sec\n", report.Throughput())
	logger.Info("bulk ingestion complete",
		"committed", report.CommittedRows, "skipped", report.SkippedRows,
		"elapsed", report.Elapsed, "rows_per_sec", report.Throughput())
}

// SingleIngest inserts one row into table, resolved against the session's
// keyspace. The row is written once on a shared session, without retries.
func (in *Ingester) SingleIngest(ctx context.Context, table string, row core.Row) error {
	if in.closed.Load() {
		return ErrIngesterClosed
	}
	if err := core.ValidateRow(row); err != nil {
		return err
	}

	statement, err := BuildInsertStatement("", table, row.Columns())
	if err != nil {
		return err
	}

	session, err := in.sharedSession(ctx)
	if err != nil {
		return err
	}

	if err := session.Execute(ctx, statement, row.Values()...); err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

func (in *Ingester) sharedSession(ctx context.Context) (storage.Session, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.shared != nil {
		return in.shared, nil
	}
	session, err := in.provider.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	in.shared = session
	return session, nil
}

// Close releases the worker pool and the shared session.
// The Ingester should not be used after calling Close.
func (in *Ingester) Close() error {
	if in.closed.Swap(true) {
		return nil
	}
	in.pool.Release()

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.shared != nil {
		err := in.shared.Close()
		in.shared = nil
		return err
	}
	return nil
}
