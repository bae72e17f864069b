// Package metrics exports ingestion metrics to Prometheus.
//
// Metrics implements ingestion.Recorder. It keeps its own registry, so
// several instances can live in one process, and serves the registry on
// /metrics when an address is configured:
//
//	m := metrics.New(metrics.Config{Address: ":9090", EnableDefaultCollectors: true})
//	go m.ListenAndServe()
//	defer m.Shutdown(context.Background())
//
//	ing, err := ingestion.NewIngester(provider, ingestion.WithRecorder(m))
package metrics
