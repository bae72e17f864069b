package ingestion

import (
	"time"

	"github.com/poiesic/bulkload/core"
)

// Recorder receives ingestion events, typically to export metrics.
// Implementations must be safe for concurrent use.
type Recorder interface {
	WorkerStarted(table string)
	WorkerStopped(table string)
	BatchCommitted(table string, rows int, elapsed time.Duration)
	BatchRetried(table string, attempt int, err error)
	BatchFailed(table string, err error)
	IngestionFinished(report *core.Report)
}

type noopRecorder struct{}

func (noopRecorder) WorkerStarted(string)                      {}
func (noopRecorder) WorkerStopped(string)                      {}
func (noopRecorder) BatchCommitted(string, int, time.Duration) {}
func (noopRecorder) BatchRetried(string, int, error)           {}
func (noopRecorder) BatchFailed(string, error)                 {}
func (noopRecorder) IngestionFinished(*core.Report)            {}
