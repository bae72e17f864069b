package ingestion

import "errors"

var (
	// ErrProviderRequired is returned when a session provider is not provided.
	ErrProviderRequired = errors.New("session provider required")

	// ErrCheckpointRepositoryRequired is returned when a checkpoint repository is not provided.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrRunIDRequired is returned when checkpoints are enabled without a run ID.
	ErrRunIDRequired = errors.New("run ID required")

	// ErrIngesterClosed is returned when the Ingester is used after Close.
	ErrIngesterClosed = errors.New("ingester is closed")

	// ErrWorkerPanic is returned when a worker recovers from a panic.
	ErrWorkerPanic = errors.New("worker panicked")
)
