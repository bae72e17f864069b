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

// Package bulkload wires configuration into a ready-to-use ingestion stack:
// a ScyllaDB session provider, an optional checkpoint journal and a
// Prometheus recorder.
//
//	cfg, err := config.Load("bulkload.yaml")
//	client, err := bulkload.NewClient(cfg)
//	defer client.Close()
//
//	ing, err := client.NewIngester()
//	defer ing.Close()
//	report, err := ing.BulkIngest(ctx, rows, "catalog", "movies", 10)
package bulkload

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/bulkload/config"
	"github.com/poiesic/bulkload/ingestion"
	"github.com/poiesic/bulkload/metrics"
	"github.com/poiesic/bulkload/storage"
	"github.com/poiesic/bulkload/storage/badger"
	"github.com/poiesic/bulkload/storage/scylla"
)

// Client owns the long-lived resources shared by ingesters.
type Client struct {
	cfg         *config.Config
	provider    storage.SessionProvider
	checkpoints *badger.CheckpointRepository
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	provider storage.SessionProvider
	logger   *slog.Logger
}

// WithSessionProvider replaces the ScyllaDB provider built from the
// configuration.
func WithSessionProvider(p storage.SessionProvider) ClientOption {
	return func(o *clientOptions) {
		o.provider = p
	}
}

// WithClientLogger sets the logger shared by every component.
// Default is slog.Default().
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// NewClient builds the provider, checkpoint journal and metrics from cfg.
func NewClient(cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	options := &clientOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	provider := options.provider
	if provider == nil {
		p, err := scylla.NewProvider(scylla.Config{
			Hosts:          cfg.ScyllaDB.Hosts(),
			Port:           cfg.ScyllaDB.Port,
			Username:       cfg.ScyllaDB.Username,
			Password:       cfg.ScyllaDB.Password,
			Datacenter:     cfg.ScyllaDB.Datacenter,
			Keyspace:       cfg.ScyllaDB.Keyspace,
			Consistency:    cfg.ScyllaDB.Consistency,
			Timeout:        cfg.ScyllaDB.Timeout,
			ConnectTimeout: cfg.ScyllaDB.ConnectTimeout,
			NumConns:       cfg.ScyllaDB.NumConns,
			ProtoVersion:   cfg.ScyllaDB.ProtoVersion,
		}, options.logger)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	var checkpoints *badger.CheckpointRepository
	if cfg.Checkpoint.Dir != "" {
		repo, err := badger.OpenCheckpointRepository(cfg.Checkpoint.Dir, options.logger)
		if err != nil {
			return nil, err
		}
		checkpoints = repo
	}

	return &Client{
		cfg:         cfg,
		provider:    provider,
		checkpoints: checkpoints,
		metrics: metrics.New(metrics.Config{
			Address:                 cfg.Metrics.Address,
			EnableDefaultCollectors: cfg.Metrics.EnableDefaultCollectors,
		}),
		logger: options.logger,
	}, nil
}

// NewIngester creates an Ingester configured from the client's settings.
// opts are applied last and override the configuration.
func (c *Client) NewIngester(opts ...ingestion.Option) (*ingestion.Ingester, error) {
	policy, err := ingestion.ParseAbortPolicy(c.cfg.Ingest.Policy)
	if err != nil {
		return nil, err
	}

	base := []ingestion.Option{
		ingestion.WithLogger(c.logger),
		ingestion.WithRecorder(c.metrics),
		ingestion.WithMaxRetries(c.cfg.Ingest.MaxRetries),
		ingestion.WithRetryDelay(c.cfg.Ingest.RetryDelay),
		ingestion.WithAbortPolicy(policy),
		ingestion.WithMonitorInterval(c.cfg.Ingest.MonitorInterval),
		ingestion.WithMonitorJoinTimeout(c.cfg.Ingest.MonitorJoinTimeout),
	}
	if c.cfg.Ingest.Workers > 0 {
		base = append(base, ingestion.WithWorkers(c.cfg.Ingest.Workers))
	}
	if c.checkpoints != nil && c.cfg.Checkpoint.RunID != "" {
		base = append(base, ingestion.WithCheckpoints(c.checkpoints, c.cfg.Checkpoint.RunID))
	}

	return ingestion.NewIngester(c.provider, append(base, opts...)...)
}

// Config returns the client's configuration.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// SessionProvider returns the provider ingesters open sessions from.
func (c *Client) SessionProvider() storage.SessionProvider {
	return c.provider
}

// Checkpoints returns the checkpoint journal, or nil when checkpoint.dir is
// not configured.
func (c *Client) Checkpoints() *badger.CheckpointRepository {
	return c.checkpoints
}

// Metrics returns the Prometheus recorder.
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}

// Close stops the metrics server and closes the checkpoint journal.
func (c *Client) Close() error {
	var errs []error
	if err := c.metrics.Shutdown(context.Background()); err != nil {
		c.logger.Error("error stopping metrics server", "err", err)
		errs = append(errs, err)
	}
	if c.checkpoints != nil {
		if err := c.checkpoints.Close(); err != nil {
			c.logger.Error("error closing checkpoint journal", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
