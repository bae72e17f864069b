// Package config loads bulkload configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. Environment variables are named SECTION_FIELD and
// map onto section.field, so the cluster connection keeps the familiar
// SCYLLADB_HOST, SCYLLADB_PORT, SCYLLADB_USERNAME, SCYLLADB_PASSWORD,
// SCYLLADB_DATACENTER and SCYLLADB_KEYSPACE names.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/bulkload/ingestion"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete bulkload configuration.
type Config struct {
	ScyllaDB   ScyllaConfig     `koanf:"scylladb"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Log        LogConfig        `koanf:"log"`
}

// ScyllaConfig holds cluster connection settings.
type ScyllaConfig struct {
	Host           string        `koanf:"host"` // comma-separated contact points
	Port           int           `koanf:"port"`
	Username       string        `koanf:"username"`
	Password       string        `koanf:"password"`
	Datacenter     string        `koanf:"datacenter"`
	Keyspace       string        `koanf:"keyspace"`
	Consistency    string        `koanf:"consistency"`
	Timeout        time.Duration `koanf:"timeout"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	NumConns       int           `koanf:"num_conns"`
	ProtoVersion   int           `koanf:"proto_version"`
}

// Hosts returns the contact points listed in Host.
func (c ScyllaConfig) Hosts() []string {
	var hosts []string
	for _, h := range strings.Split(c.Host, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// IngestConfig holds bulk ingestion tuning.
type IngestConfig struct {
	Workers            int           `koanf:"workers"` // 0 means one per CPU
	Concurrency        int           `koanf:"concurrency"`
	MaxRetries         int           `koanf:"max_retries"`
	RetryDelay         time.Duration `koanf:"retry_delay"`
	Policy             string        `koanf:"policy"`
	MonitorInterval    time.Duration `koanf:"monitor_interval"`
	MonitorJoinTimeout time.Duration `koanf:"monitor_join_timeout"`
}

// CheckpointConfig holds the checkpoint journal location.
// Checkpointing is enabled when both fields are set.
type CheckpointConfig struct {
	Dir   string `koanf:"dir"`
	RunID string `koanf:"run_id"`
}

// Enabled reports whether checkpointing is configured.
func (c CheckpointConfig) Enabled() bool {
	return c.Dir != "" && c.RunID != ""
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Address                 string `koanf:"address"`
	EnableDefaultCollectors bool   `koanf:"enable_default_collectors"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ScyllaDB: ScyllaConfig{
			Host:           "127.0.0.1",
			Port:           9042,
			Consistency:    "LOCAL_ONE",
			Timeout:        10 * time.Second,
			ConnectTimeout: 10 * time.Second,
		},
		Ingest: IngestConfig{
			Concurrency:        10,
			MaxRetries:         5,
			RetryDelay:         500 * time.Millisecond,
			Policy:             "fail-fast",
			MonitorInterval:    100 * time.Millisecond,
			MonitorJoinTimeout: time.Second,
		},
		Metrics: MetricsConfig{
			EnableDefaultCollectors: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.ScyllaDB.Hosts()) == 0 {
		return fmt.Errorf("%w: scylladb.host is empty", ErrInvalidConfig)
	}
	if c.ScyllaDB.Port < 1 || c.ScyllaDB.Port > 65535 {
		return fmt.Errorf("%w: scylladb.port %d (must be 1-65535)", ErrInvalidConfig, c.ScyllaDB.Port)
	}
	if c.ScyllaDB.Username == "" && c.ScyllaDB.Password != "" {
		return fmt.Errorf("%w: scylladb.password set without scylladb.username", ErrInvalidConfig)
	}
	if c.ScyllaDB.Timeout < 0 || c.ScyllaDB.ConnectTimeout < 0 {
		return fmt.Errorf("%w: scylladb timeouts must not be negative", ErrInvalidConfig)
	}

	if c.Ingest.Workers < 0 {
		return fmt.Errorf("%w: ingest.workers %d must not be negative", ErrInvalidConfig, c.Ingest.Workers)
	}
	if c.Ingest.Concurrency < 1 {
		return fmt.Errorf("%w: ingest.concurrency %d must be positive", ErrInvalidConfig, c.Ingest.Concurrency)
	}
	if c.Ingest.MaxRetries < 1 || c.Ingest.MaxRetries > ingestion.MaxRetriesLimit {
		return fmt.Errorf("%w: ingest.max_retries %d (must be 1-%d)", ErrInvalidConfig, c.Ingest.MaxRetries, ingestion.MaxRetriesLimit)
	}
	if c.Ingest.RetryDelay < 0 {
		return fmt.Errorf("%w: ingest.retry_delay must not be negative", ErrInvalidConfig)
	}
	if c.Ingest.MonitorInterval <= 0 {
		return fmt.Errorf("%w: ingest.monitor_interval must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Ingest.Policy) {
	case "fail-fast", "best-effort":
	default:
		return fmt.Errorf("%w: ingest.policy %q (must be fail-fast or best-effort)", ErrInvalidConfig, c.Ingest.Policy)
	}

	if (c.Checkpoint.Dir == "") != (c.Checkpoint.RunID == "") {
		return fmt.Errorf("%w: checkpoint.dir and checkpoint.run_id must be set together", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.format %q (must be json or console)", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}
