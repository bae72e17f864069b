package ingestion

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/bulkload/core"
	"github.com/poiesic/bulkload/storage"
	"github.com/poiesic/bulkload/storage/badger"
	"github.com/poiesic/bulkload/storage/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDataset(n int) core.Dataset {
	ds := make(core.Dataset, n)
	for i := range ds {
		ds[i] = core.Row{
			{Name: "id", Value: i},
			{Name: "title", Value: "movie"},
			{Name: "embedding", Value: []float32{0.1, 0.2}},
		}
	}
	return ds
}

func rowID(params []any) int {
	return params[0].(int)
}

func newTestIngester(t *testing.T, provider storage.SessionProvider, opts ...Option) *Ingester {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithMonitorInterval(time.Millisecond),
		withTimer(&fakeTimer{}),
	}
	in, err := NewIngester(provider, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { in.Close() })
	return in
}

// failingRows makes every batch containing an id in [lo, hi) fail and counts
// the attempts made on them.
func failingRows(lo, hi int, attempts *atomic.Int32) func(context.Context, storage.PreparedStatement, [][]any, int) error {
	return func(_ context.Context, _ storage.PreparedStatement, params [][]any, _ int) error {
		for _, p := range params {
			if id := rowID(p); id >= lo && id < hi {
				attempts.Add(1)
				return errors.New("write timeout")
			}
		}
		return nil
	}
}

func TestBulkIngest_AllRowsCommitted(t *testing.T) {
	provider := mock.NewMockProvider()
	var out bytes.Buffer
	in := newTestIngester(t, provider, WithWorkers(4), WithProgressWriter(&out))

	report, err := in.BulkIngest(context.Background(), makeDataset(100), "catalog", "movies", 10)
	require.NoError(t, err)

	assert.False(t, report.Aborted)
	assert.NoError(t, report.Err())
	assert.Equal(t, 100, report.CommittedRows)
	assert.Equal(t, 100, report.TotalRows)
	assert.Equal(t, 4, report.Workers)
	assert.Equal(t, 0, report.FailedWorkers)

	sessions := provider.Sessions()
	require.Len(t, sessions, 4, "one session per worker")
	for _, s := range sessions {
		assert.True(t, s.Closed())
		assert.Equal(t, 3, s.BatchCalls(), "25 rows in batches of 10")
		assert.Equal(t, []string{"INSERT INTO catalog.movies (id, title, embedding) VALUES (?, ?, ?);"}, s.Prepared())
	}

	var ids []int
	for _, p := range provider.Rows() {
		require.Len(t, p, 3)
		ids = append(ids, rowID(p))
	}
	sort.Ints(ids)
	for i, id := range ids {
		require.Equal(t, i, id)
	}
	assert.Len(t, ids, 100)

	assert.Contains(t, out.String(), "Done running 100 operations in")
	assert.Contains(t, out.String(), "Throughput:")
}

func TestBulkIngest_FewerRowsThanWorkers(t *testing.T) {
	provider := mock.NewMockProvider()
	in := newTestIngester(t, provider, WithWorkers(10))

	report, err := in.BulkIngest(context.Background(), makeDataset(7), "catalog", "movies", 10)
	require.NoError(t, err)

	assert.False(t, report.Aborted)
	assert.Equal(t, 7, report.CommittedRows)
	assert.Equal(t, 7, report.Workers)
	assert.Equal(t, 7, provider.Calls(), "empty chunks open no session")
	assert.Equal(t, 0, provider.OpenSessions())
	assert.Len(t, provider.Rows(), 7)
}

func TestBulkIngest_BatchesKeepChunkOrder(t *testing.T) {
	provider := mock.NewMockProvider()
	in := newTestIngester(t, provider, WithWorkers(1))

	_, err := in.BulkIngest(context.Background(), makeDataset(35), "ks", "t", 10)
	require.NoError(t, err)

	rows := provider.Rows()
	require.Len(t, rows, 35)
	for i, p := range rows {
		assert.Equal(t, i, rowID(p))
	}
}

func TestBulkIngest_WorkerFailureAborts(t *testing.T) {
	var attempts atomic.Int32
	provider := &mock.MockProvider{
		NewSessionFunc: func(_ context.Context, _ int) (*mock.MockSession, error) {
			s := mock.NewMockSession()
			s.ExecuteConcurrentFunc = failingRows(50, 75, &attempts)
			return s, nil
		},
	}
	var out bytes.Buffer
	in := newTestIngester(t, provider, WithWorkers(4), WithProgressWriter(&out))

	done := make(chan struct{})
	var report *core.Report
	var err error
	go func() {
		defer close(done)
		report, err = in.BulkIngest(context.Background(), makeDataset(100), "ks", "t", 10)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("BulkIngest did not terminate")
	}

	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.ErrorIs(t, report.Err(), core.ErrIngestionAborted)
	assert.Less(t, report.CommittedRows, report.TotalRows)
	assert.LessOrEqual(t, report.CommittedRows, 75)
	assert.Equal(t, 1, report.FailedWorkers)
	assert.EqualValues(t, DefaultMaxRetries, attempts.Load(), "the failing batch is attempted exactly MaxRetries times")
	assert.Equal(t, 0, provider.OpenSessions())
	assert.Contains(t, out.String(), "Aborted due to repeated failures. Processed")
}

func TestBulkIngest_BackoffBetweenAttempts(t *testing.T) {
	var attempts atomic.Int32
	provider := &mock.MockProvider{
		NewSessionFunc: func(_ context.Context, _ int) (*mock.MockSession, error) {
			s := mock.NewMockSession()
			s.ExecuteConcurrentFunc = failingRows(0, 1, &attempts)
			return s, nil
		},
	}
	timer := &fakeTimer{}
	in := newTestIngester(t, provider,
		WithWorkers(1), WithMaxRetries(4), WithRetryDelay(10*time.Millisecond), withTimer(timer))

	report, err := in.BulkIngest(context.Background(), makeDataset(5), "ks", "t", 5)
	require.NoError(t, err)

	assert.True(t, report.Aborted)
	assert.Equal(t, 0, report.CommittedRows)
	assert.EqualValues(t, 4, attempts.Load())
	assert.Equal(t, []time.Duration{
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
	}, timer.Delays())
}

func TestBulkIngest_FailFastStopsHealthyWorkers(t *testing.T) {
	var attempts atomic.Int32
	provider := &mock.MockProvider{
		NewSessionFunc: func(_ context.Context, _ int) (*mock.MockSession, error) {
			s := mock.NewMockSession()
			fail := failingRows(0, 10, &attempts)
			s.ExecuteConcurrentFunc = func(ctx context.Context, p storage.PreparedStatement, params [][]any, c int) error {
				if err := fail(ctx, p, params, c); err != nil {
					return err
				}
				time.Sleep(2 * time.Millisecond)
				return nil
			}
			return s, nil
		},
	}
	in := newTestIngester(t, provider, WithWorkers(2))

	report, err := in.BulkIngest(context.Background(), makeDataset(1000), "ks", "t", 10)
	require.NoError(t, err)

	assert.True(t, report.Aborted)
	assert.Less(t, report.CommittedRows, 500, "the healthy worker stops once the flag is raised")
}

func TestBulkIngest_BestEffortLetsHealthyWorkersFinish(t *testing.T) {
	var attempts atomic.Int32
	provider := &mock.MockProvider{
		NewSessionFunc: func(_ context.Context, _ int) (*mock.MockSession, error) {
			s := mock.NewMockSession()
			s.ExecuteConcurrentFunc = failingRows(0, 10, &attempts)
			return s, nil
		},
	}
	in := newTestIngester(t, provider, WithWorkers(2), WithAbortPolicy(BestEffort))

	report, err := in.BulkIngest(context.Background(), makeDataset(1000), "ks", "t", 10)
	require.NoError(t, err)

	assert.True(t, report.Aborted)
	assert.Equal(t, 500, report.CommittedRows, "second half is fully committed")
	assert.Equal(t, 1, report.FailedWorkers)
}

func TestBulkIngest_SessionFailureEscalates(t *testing.T) {
	provider := &mock.MockProvider{
		NewSessionFunc: func(_ context.Context, index int) (*mock.MockSession, error) {
			return nil, errors.New("no hosts available")
		},
	}
	in := newTestIngester(t, provider, WithWorkers(3))

	report, err := in.BulkIngest(context.Background(), makeDataset(30), "ks", "t", 10)
	require.NoError(t, err)

	assert.True(t, report.Aborted)
	assert.Equal(t, 0, report.CommittedRows)
	assert.GreaterOrEqual(t, report.FailedWorkers, 1)
}

func TestBulkIngest_WorkerPanicIsContained(t *testing.T) {
	provider := &mock.MockProvider{
		NewSessionFunc: func(_ context.Context, _ int) (*mock.MockSession, error) {
			s := mock.NewMockSession()
			s.ExecuteConcurrentFunc = func(context.Context, storage.PreparedStatement, [][]any, int) error {
				panic("driver bug")
			}
			return s, nil
		},
	}
	in := newTestIngester(t, provider, WithWorkers(1))

	report, err := in.BulkIngest(context.Background(), makeDataset(10), "ks", "t", 10)
	require.NoError(t, err)

	assert.True(t, report.Aborted)
	assert.Equal(t, 1, report.FailedWorkers)
	assert.Equal(t, 0, provider.OpenSessions(), "session is closed on panic")
}

func TestBulkIngest_InvalidInput(t *testing.T) {
	provider := mock.NewMockProvider()
	in := newTestIngester(t, provider)
	ctx := context.Background()

	inconsistent := makeDataset(3)
	inconsistent[2] = core.Row{{Name: "id", Value: 2}, {Name: "name", Value: "x"}, {Name: "embedding", Value: nil}}

	tests := []struct {
		name        string
		dataset     core.Dataset
		keyspace    string
		table       string
		concurrency int
		wantErr     error
	}{
		{"inconsistent keys", inconsistent, "ks", "t", 10, core.ErrInvalidArgument},
		{"empty dataset", core.Dataset{}, "ks", "t", 10, core.ErrInvalidArgument},
		{"zero concurrency", makeDataset(3), "ks", "t", 0, core.ErrInvalidArgument},
		{"empty keyspace", makeDataset(3), "", "t", 10, core.ErrInvalidArgument},
		{"empty table", makeDataset(3), "ks", "", 10, core.ErrInvalidSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := in.BulkIngest(ctx, tt.dataset, tt.keyspace, tt.table, tt.concurrency)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, report)
		})
	}
	assert.Equal(t, 0, provider.Calls(), "no session is opened for invalid input")
}

func TestBulkIngest_CanceledContext(t *testing.T) {
	provider := mock.NewMockProvider()
	in := newTestIngester(t, provider, WithWorkers(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := in.BulkIngest(ctx, makeDataset(20), "ks", "t", 5)
	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Equal(t, 0, report.CommittedRows)
	assert.Equal(t, 0, report.FailedWorkers, "cancellation is not a worker failure")
	assert.Equal(t, 0, provider.OpenSessions())
}

func TestBulkIngest_CanceledDuringLastAttempt(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	provider := mock.NewMockProvider()
	provider.NewSessionFunc = func(context.Context, int) (*mock.MockSession, error) {
		s := mock.NewMockSession()
		s.ExecuteConcurrentFunc = func(ctx context.Context, _ storage.PreparedStatement, _ [][]any, _ int) error {
			cancel(errors.New("operator stop"))
			return ctx.Err()
		}
		return s, nil
	}
	in := newTestIngester(t, provider, WithWorkers(1), WithMaxRetries(1))

	report, err := in.BulkIngest(ctx, makeDataset(10), "ks", "t", 5)
	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Equal(t, 0, report.FailedWorkers, "cancellation is not a worker failure")
}

func TestBulkIngest_ResumesFromCheckpoints(t *testing.T) {
	repo, err := badger.NewMemoryCheckpoints()
	require.NoError(t, err)
	defer repo.Close()
	ctx := context.Background()

	require.NoError(t, repo.MarkCommitted(ctx, "nightly", core.Range{Start: 0, End: 45}))

	provider := mock.NewMockProvider()
	in := newTestIngester(t, provider, WithWorkers(1), WithCheckpoints(repo, "nightly"))

	report, err := in.BulkIngest(ctx, makeDataset(100), "ks", "t", 10)
	require.NoError(t, err)

	assert.False(t, report.Aborted)
	assert.Equal(t, 100, report.CommittedRows)
	assert.Equal(t, 40, report.SkippedRows, "only fully journaled batches are skipped")

	rows := provider.Rows()
	require.Len(t, rows, 60)
	assert.Equal(t, 40, rowID(rows[0]))

	ranges, err := repo.CommittedRanges(ctx, "nightly")
	require.NoError(t, err)
	assert.Equal(t, []core.Range{{Start: 0, End: 100}}, ranges)
}

func TestBulkIngest_CheckpointRunRejectsOtherDataset(t *testing.T) {
	repo, err := badger.NewMemoryCheckpoints()
	require.NoError(t, err)
	defer repo.Close()
	ctx := context.Background()

	provider := mock.NewMockProvider()
	in := newTestIngester(t, provider, WithWorkers(2), WithCheckpoints(repo, "nightly"))

	_, err = in.BulkIngest(ctx, makeDataset(20), "ks", "t", 5)
	require.NoError(t, err)
	sessions := len(provider.Sessions())

	_, err = in.BulkIngest(ctx, makeDataset(30), "ks", "t", 5)
	assert.ErrorIs(t, err, storage.ErrDatasetMismatch)
	assert.Len(t, provider.Sessions(), sessions, "no session is opened for a rejected run")
}

type countingRecorder struct {
	mu        sync.Mutex
	started   int
	stopped   int
	committed int
	retried   int
	failed    int
	reports   []*core.Report
}

func (r *countingRecorder) WorkerStarted(string) { r.mu.Lock(); r.started++; r.mu.Unlock() }
func (r *countingRecorder) WorkerStopped(string) { r.mu.Lock(); r.stopped++; r.mu.Unlock() }
func (r *countingRecorder) BatchCommitted(_ string, rows int, _ time.Duration) {
	r.mu.Lock()
	r.committed += rows
	r.mu.Unlock()
}
func (r *countingRecorder) BatchRetried(string, int, error) { r.mu.Lock(); r.retried++; r.mu.Unlock() }
func (r *countingRecorder) BatchFailed(string, error)       { r.mu.Lock(); r.failed++; r.mu.Unlock() }
func (r *countingRecorder) IngestionFinished(report *core.Report) {
	r.mu.Lock()
	r.reports = append(r.reports, report)
	r.mu.Unlock()
}

func TestBulkIngest_RecordsEvents(t *testing.T) {
	var attempts atomic.Int32
	provider := &mock.MockProvider{
		NewSessionFunc: func(_ context.Context, _ int) (*mock.MockSession, error) {
			s := mock.NewMockSession()
			s.ExecuteConcurrentFunc = failingRows(0, 10, &attempts)
			return s, nil
		},
	}
	rec := &countingRecorder{}
	in := newTestIngester(t, provider, WithWorkers(2), WithAbortPolicy(BestEffort), WithRecorder(rec), WithMaxRetries(3))

	report, err := in.BulkIngest(context.Background(), makeDataset(40), "ks", "t", 10)
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.started)
	assert.Equal(t, 2, rec.stopped)
	assert.Equal(t, 20, rec.committed)
	assert.Equal(t, 2, rec.retried, "retries exclude the final attempt")
	assert.Equal(t, 1, rec.failed)
	require.Len(t, rec.reports, 1)
	assert.Same(t, report, rec.reports[0])
}

func TestSingleIngest(t *testing.T) {
	provider := mock.NewMockProvider()
	in := newTestIngester(t, provider)
	ctx := context.Background()

	row := core.Row{{Name: "id", Value: 7}, {Name: "title", Value: "Heat"}}
	require.NoError(t, in.SingleIngest(ctx, "movies", row))
	require.NoError(t, in.SingleIngest(ctx, "movies", row))

	require.Equal(t, 1, provider.Calls(), "single inserts share one session")
	execs := provider.Sessions()[0].Executions()
	require.Len(t, execs, 2)
	assert.Equal(t, "INSERT INTO movies (id, title) VALUES (?, ?);", execs[0].Statement)
	assert.Equal(t, []any{7, "Heat"}, execs[0].Values)

	require.NoError(t, in.Close())
	assert.True(t, provider.Sessions()[0].Closed())
	assert.ErrorIs(t, in.SingleIngest(ctx, "movies", row), ErrIngesterClosed)
}

func TestSingleIngest_Errors(t *testing.T) {
	failure := errors.New("unconfigured table movies")
	provider := &mock.MockProvider{
		NewSessionFunc: func(_ context.Context, _ int) (*mock.MockSession, error) {
			s := mock.NewMockSession()
			s.ExecuteFunc = func(context.Context, string, ...any) error { return failure }
			return s, nil
		},
	}
	in := newTestIngester(t, provider)
	ctx := context.Background()

	err := in.SingleIngest(ctx, "movies", core.Row{{Name: "id", Value: 1}})
	assert.ErrorIs(t, err, failure)

	err = in.SingleIngest(ctx, "movies", core.Row{})
	assert.ErrorIs(t, err, core.ErrInvalidSchema)

	err = in.SingleIngest(ctx, "", core.Row{{Name: "id", Value: 1}})
	assert.ErrorIs(t, err, core.ErrInvalidSchema)
}

func TestNewIngester_Options(t *testing.T) {
	_, err := NewIngester(nil)
	assert.ErrorIs(t, err, ErrProviderRequired)

	provider := mock.NewMockProvider()
	bad := []Option{
		WithWorkers(0),
		WithMaxRetries(0),
		WithMaxRetries(MaxRetriesLimit + 1),
		WithRetryDelay(-time.Second),
		WithAbortPolicy(AbortPolicy(9)),
		WithMonitorInterval(0),
		WithMonitorJoinTimeout(-time.Second),
	}
	for _, opt := range bad {
		_, err := NewIngester(provider, opt)
		assert.ErrorIs(t, err, core.ErrInvalidArgument)
	}

	_, err = NewIngester(provider, WithCheckpoints(nil, "run"))
	assert.ErrorIs(t, err, ErrCheckpointRepositoryRequired)

	repo, err := badger.NewMemoryCheckpoints()
	require.NoError(t, err)
	defer repo.Close()
	_, err = NewIngester(provider, WithCheckpoints(repo, ""))
	assert.ErrorIs(t, err, ErrRunIDRequired)
}

func TestParseAbortPolicy(t *testing.T) {
	p, err := ParseAbortPolicy("best-effort")
	require.NoError(t, err)
	assert.Equal(t, BestEffort, p)

	p, err = ParseAbortPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailFast, p)
	assert.Equal(t, "fail-fast", p.String())

	_, err = ParseAbortPolicy("yolo")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}
