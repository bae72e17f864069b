package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bulkload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"127.0.0.1"}, cfg.ScyllaDB.Hosts())
	assert.Equal(t, 9042, cfg.ScyllaDB.Port)
	assert.Equal(t, 10, cfg.Ingest.Concurrency)
	assert.Equal(t, 5, cfg.Ingest.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Ingest.RetryDelay)
	assert.Equal(t, "fail-fast", cfg.Ingest.Policy)
	assert.False(t, cfg.Checkpoint.Enabled())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
scylladb:
  host: "10.0.0.1, 10.0.0.2"
  keyspace: catalog
  datacenter: dc1
ingest:
  workers: 8
  max_retries: 3
  retry_delay: 250ms
  policy: best-effort
checkpoint:
  dir: /var/lib/bulkload
  run_id: nightly
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.ScyllaDB.Hosts())
	assert.Equal(t, "catalog", cfg.ScyllaDB.Keyspace)
	assert.Equal(t, "dc1", cfg.ScyllaDB.Datacenter)
	assert.Equal(t, 9042, cfg.ScyllaDB.Port, "unset values keep their defaults")
	assert.Equal(t, 8, cfg.Ingest.Workers)
	assert.Equal(t, 3, cfg.Ingest.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingest.RetryDelay)
	assert.Equal(t, "best-effort", cfg.Ingest.Policy)
	assert.True(t, cfg.Checkpoint.Enabled())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
scylladb:
  host: file-host
  keyspace: from_file
`)
	t.Setenv("SCYLLADB_HOST", "env-host")
	t.Setenv("SCYLLADB_PORT", "19042")
	t.Setenv("SCYLLADB_USERNAME", "loader")
	t.Setenv("SCYLLADB_PASSWORD", "secret")
	t.Setenv("SCYLLADB_DATACENTER", "us-east")
	t.Setenv("SCYLLADB_CONNECT_TIMEOUT", "3s")
	t.Setenv("INGEST_MAX_RETRIES", "7")
	t.Setenv("UNRELATED_SETTING", "ignored")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"env-host"}, cfg.ScyllaDB.Hosts())
	assert.Equal(t, 19042, cfg.ScyllaDB.Port)
	assert.Equal(t, "loader", cfg.ScyllaDB.Username)
	assert.Equal(t, "secret", cfg.ScyllaDB.Password)
	assert.Equal(t, "us-east", cfg.ScyllaDB.Datacenter)
	assert.Equal(t, "from_file", cfg.ScyllaDB.Keyspace)
	assert.Equal(t, 3*time.Second, cfg.ScyllaDB.ConnectTimeout)
	assert.Equal(t, 7, cfg.Ingest.MaxRetries)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
ingest:
  policy: sometimes
`)
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no hosts", func(c *Config) { c.ScyllaDB.Host = " , " }},
		{"bad port", func(c *Config) { c.ScyllaDB.Port = 70000 }},
		{"password without user", func(c *Config) { c.ScyllaDB.Password = "x" }},
		{"negative workers", func(c *Config) { c.Ingest.Workers = -1 }},
		{"zero concurrency", func(c *Config) { c.Ingest.Concurrency = 0 }},
		{"zero retries", func(c *Config) { c.Ingest.MaxRetries = 0 }},
		{"too many retries", func(c *Config) { c.Ingest.MaxRetries = 31 }},
		{"negative delay", func(c *Config) { c.Ingest.RetryDelay = -time.Second }},
		{"half checkpoint", func(c *Config) { c.Checkpoint.Dir = "/tmp/x" }},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	assert.NoError(t, Default().Validate())
}
