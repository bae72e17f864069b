// Package ingestion loads row-structured datasets into a CQL table.
//
// The Ingester partitions a dataset into contiguous chunks, one per worker.
// Each worker runs on a pooled goroutine with its own database session and
// commits its chunk in batches, retrying a failed batch with exponential
// backoff. Workers share only an atomic progress counter and a set-once
// abort flag:
//   - a worker that exhausts its retries sets the abort flag (FailFast)
//     or just stops (BestEffort)
//   - every worker checks the flag before each batch
//   - a monitor goroutine renders progress from the counter
//
// A run can be journaled through a storage.CheckpointRepository so that a
// rerun with the same run ID and dataset skips batches that were already
// committed.
package ingestion
