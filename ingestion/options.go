package ingestion

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/poiesic/bulkload/core"
	"github.com/poiesic/bulkload/storage"
)

const (
	// DefaultMaxRetries is the number of attempts made for each batch.
	DefaultMaxRetries = 5

	// MaxRetriesLimit bounds the number of attempts made for each batch.
	MaxRetriesLimit = 30

	// DefaultRetryDelay is the base of the exponential backoff between attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMonitorInterval is how often the progress monitor polls.
	DefaultMonitorInterval = 100 * time.Millisecond

	// DefaultMonitorJoinTimeout bounds the wait for the monitor at the end of a run.
	DefaultMonitorJoinTimeout = time.Second
)

// AbortPolicy decides what a worker does once a batch exhausts its retries.
type AbortPolicy int

const (
	// FailFast raises the abort flag so every worker stops before its next batch.
	FailFast AbortPolicy = iota

	// BestEffort stops only the failing worker and lets the others finish.
	BestEffort
)

func (p AbortPolicy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case BestEffort:
		return "best-effort"
	default:
		return fmt.Sprintf("AbortPolicy(%d)", int(p))
	}
}

// ParseAbortPolicy parses "fail-fast" or "best-effort".
func ParseAbortPolicy(s string) (AbortPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-fast", "failfast":
		return FailFast, nil
	case "best-effort", "besteffort":
		return BestEffort, nil
	default:
		return FailFast, fmt.Errorf("%w: unknown abort policy %q", core.ErrInvalidArgument, s)
	}
}

// Option configures an Ingester.
type Option func(*Ingester) error

// WithWorkers sets the number of workers a dataset is partitioned across.
// Default is runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(in *Ingester) error {
		if n < 1 {
			return fmt.Errorf("%w: workers must be positive, got %d", core.ErrInvalidArgument, n)
		}
		in.workers = n
		return nil
	}
}

// WithMaxRetries sets how many attempts are made for each batch.
// Default is DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(in *Ingester) error {
		if n < 1 || n > MaxRetriesLimit {
			return fmt.Errorf("%w: max retries must be between 1 and %d, got %d", core.ErrInvalidArgument, MaxRetriesLimit, n)
		}
		in.retry.maxAttempts = n
		return nil
	}
}

// WithRetryDelay sets the backoff base. The delay after the k-th failed
// attempt is d * 2^k. Default is DefaultRetryDelay.
func WithRetryDelay(d time.Duration) Option {
	return func(in *Ingester) error {
		if d < 0 {
			return fmt.Errorf("%w: retry delay must not be negative, got %s", core.ErrInvalidArgument, d)
		}
		in.retry.baseDelay = d
		return nil
	}
}

// WithAbortPolicy sets the escalation policy. Default is FailFast.
func WithAbortPolicy(p AbortPolicy) Option {
	return func(in *Ingester) error {
		if p != FailFast && p != BestEffort {
			return fmt.Errorf("%w: unknown abort policy %d", core.ErrInvalidArgument, int(p))
		}
		in.policy = p
		return nil
	}
}

// WithMonitorInterval sets the progress polling interval.
func WithMonitorInterval(d time.Duration) Option {
	return func(in *Ingester) error {
		if d <= 0 {
			return fmt.Errorf("%w: monitor interval must be positive, got %s", core.ErrInvalidArgument, d)
		}
		in.monitorInterval = d
		return nil
	}
}

// WithMonitorJoinTimeout bounds how long BulkIngest waits for the monitor
// after the workers finish.
func WithMonitorJoinTimeout(d time.Duration) Option {
	return func(in *Ingester) error {
		if d < 0 {
			return fmt.Errorf("%w: monitor join timeout must not be negative, got %s", core.ErrInvalidArgument, d)
		}
		in.monitorJoinTimeout = d
		return nil
	}
}

// WithProgressWriter sets where progress lines and the run summary are
// written. Default is io.Discard.
func WithProgressWriter(w io.Writer) Option {
	return func(in *Ingester) error {
		if w == nil {
			w = io.Discard
		}
		in.progress = w
		return nil
	}
}

// WithRecorder sets the event recorder.
func WithRecorder(r Recorder) Option {
	return func(in *Ingester) error {
		if r == nil {
			r = noopRecorder{}
		}
		in.recorder = r
		return nil
	}
}

// WithCheckpoints journals committed batches under runID, and skips batches
// the journal already holds for that run.
func WithCheckpoints(repo storage.CheckpointRepository, runID string) Option {
	return func(in *Ingester) error {
		if repo == nil {
			return ErrCheckpointRepositoryRequired
		}
		if runID == "" {
			return ErrRunIDRequired
		}
		in.checkpoints = repo
		in.runID = runID
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingester) error {
		if logger == nil {
			logger = slog.Default()
		}
		in.logger = logger
		return nil
	}
}

// withTimer replaces the retry clock.
func withTimer(t retry.Timer) Option {
	return func(in *Ingester) error {
		in.retry.timer = t
		return nil
	}
}
