package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/poiesic/bulkload/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bulkload"

// Config controls the metrics endpoint.
type Config struct {
	// Address is the listen address of the /metrics server, e.g. ":9090".
	// Empty disables ListenAndServe.
	Address string

	// EnableDefaultCollectors registers the Go runtime and process collectors.
	EnableDefaultCollectors bool
}

// Metrics holds the Prometheus registry, the ingestion collectors and the
// HTTP server exposing them.
type Metrics struct {
	// Server serves the registry on /metrics.
	Server *http.Server

	// Registry is the isolated registry all collectors are registered with.
	Registry *prometheus.Registry

	rowsCommitted  *prometheus.CounterVec
	batches        *prometheus.CounterVec
	batchRetries   *prometheus.CounterVec
	batchDuration  *prometheus.HistogramVec
	workersActive  *prometheus.GaugeVec
	ingestions     *prometheus.CounterVec
	ingestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		rowsCommitted: createCounterVec("rows_committed_total",
			"Rows committed to the target table", []string{"table"}),
		batches: createCounterVec("batches_total",
			"Batches executed, by final outcome", []string{"table", "outcome"}),
		batchRetries: createCounterVec("batch_retries_total",
			"Batch attempts that failed and were retried", []string{"table"}),
		batchDuration: createHistogramVec("batch_duration_seconds",
			"Wall time to commit a batch, retries included", []string{"table"},
			prometheus.ExponentialBuckets(0.005, 2, 12)),
		workersActive: createGaugeVec("workers_active",
			"Workers currently committing rows", []string{"table"}),
		ingestions: createCounterVec("ingestions_total",
			"Bulk ingestions finished, by status", []string{"table", "status"}),
		ingestDuration: createHistogramVec("ingestion_duration_seconds",
			"Wall time of a bulk ingestion", []string{"table"},
			prometheus.ExponentialBuckets(1, 2, 14)),
	}

	registry.MustRegister(
		m.rowsCommitted,
		m.batches,
		m.batchRetries,
		m.batchDuration,
		m.workersActive,
		m.ingestions,
		m.ingestDuration,
	)

	if cfg.EnableDefaultCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	m.Server = &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return m
}

// ListenAndServe serves /metrics until Shutdown is called.
// Returns nil after a clean shutdown.
func (m *Metrics) ListenAndServe() error {
	if m.Server.Addr == "" {
		return nil
	}
	if err := m.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the metrics server.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.Server.Shutdown(ctx)
}

// WorkerStarted implements ingestion.Recorder.
func (m *Metrics) WorkerStarted(table string) {
	m.workersActive.WithLabelValues(table).Inc()
}

// WorkerStopped implements ingestion.Recorder.
func (m *Metrics) WorkerStopped(table string) {
	m.workersActive.WithLabelValues(table).Dec()
}

// BatchCommitted implements ingestion.Recorder.
func (m *Metrics) BatchCommitted(table string, rows int, elapsed time.Duration) {
	m.rowsCommitted.WithLabelValues(table).Add(float64(rows))
	m.batches.WithLabelValues(table, "committed").Inc()
	m.batchDuration.WithLabelValues(table).Observe(elapsed.Seconds())
}

// BatchRetried implements ingestion.Recorder.
func (m *Metrics) BatchRetried(table string, _ int, _ error) {
	m.batchRetries.WithLabelValues(table).Inc()
}

// BatchFailed implements ingestion.Recorder.
func (m *Metrics) BatchFailed(table string, _ error) {
	m.batches.WithLabelValues(table, "failed").Inc()
}

// IngestionFinished implements ingestion.Recorder.
func (m *Metrics) IngestionFinished(report *core.Report) {
	status := "complete"
	if report.Aborted {
		status = "aborted"
	}
	m.ingestions.WithLabelValues(report.Table, status).Inc()
	m.ingestDuration.WithLabelValues(report.Table).Observe(report.ElapsedSeconds())
}
