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

// Package scylla implements storage.SessionProvider over the gocql driver
// for ScyllaDB and Cassandra clusters.
package scylla

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/poiesic/bulkload/logging"
	"github.com/poiesic/bulkload/storage"
)

const (
	// DefaultPort is the CQL native transport port.
	DefaultPort = 9042

	// DefaultConsistency is used when Config.Consistency is empty.
	DefaultConsistency = "LOCAL_ONE"

	// DefaultTimeout bounds a single query round trip.
	DefaultTimeout = 10 * time.Second

	// DefaultConnectTimeout bounds the initial connection to a host.
	DefaultConnectTimeout = 10 * time.Second
)

// Config describes how to reach the cluster.
type Config struct {
	Hosts          []string
	Port           int
	Username       string
	Password       string
	Datacenter     string
	Keyspace       string
	Consistency    string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	NumConns       int
	ProtoVersion   int
}

// Provider opens independent gocql sessions from one Config.
type Provider struct {
	cfg         Config
	consistency gocql.Consistency
	logger      *slog.Logger
}

var _ storage.SessionProvider = (*Provider)(nil)

// NewProvider validates cfg and returns a Provider.
// No connection is made until NewSession is called.
func NewProvider(cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var hosts []string
	for _, h := range cfg.Hosts {
		for _, part := range strings.Split(h, ",") {
			if part = strings.TrimSpace(part); part != "" {
				hosts = append(hosts, part)
			}
		}
	}
	if len(hosts) == 0 {
		return nil, storage.ErrNoHosts
	}
	cfg.Hosts = hosts

	if cfg.Consistency == "" {
		cfg.Consistency = DefaultConsistency
	}
	consistency, err := gocql.ParseConsistencyWrapper(cfg.Consistency)
	if err != nil {
		return nil, fmt.Errorf("invalid consistency %q: %w", cfg.Consistency, err)
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	return &Provider{
		cfg:         cfg,
		consistency: consistency,
		logger:      logger.With("component", "scylla"),
	}, nil
}

// clusterConfig builds a fresh gocql configuration.
// Host selection policies keep per-session state, so each session gets its own.
func (p *Provider) clusterConfig() *gocql.ClusterConfig {
	cluster := gocql.NewCluster(p.cfg.Hosts...)
	cluster.Port = p.cfg.Port
	cluster.Keyspace = p.cfg.Keyspace
	cluster.Consistency = p.consistency
	cluster.Timeout = p.cfg.Timeout
	cluster.ConnectTimeout = p.cfg.ConnectTimeout
	if p.cfg.NumConns > 0 {
		cluster.NumConns = p.cfg.NumConns
	}
	if p.cfg.ProtoVersion > 0 {
		cluster.ProtoVersion = p.cfg.ProtoVersion
	}
	if p.cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: p.cfg.Username,
			Password: p.cfg.Password,
		}
	}

	var fallback gocql.HostSelectionPolicy
	if p.cfg.Datacenter != "" {
		fallback = gocql.DCAwareRoundRobinPolicy(p.cfg.Datacenter)
	} else {
		fallback = gocql.RoundRobinHostPolicy()
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(fallback)
	cluster.Logger = logging.NewPrintf(p.logger)

	return cluster
}

// NewSession connects to the cluster and returns a session owned by the caller.
func (p *Provider) NewSession(ctx context.Context) (storage.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session, err := p.clusterConfig().CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", strings.Join(p.cfg.Hosts, ","), err)
	}
	p.logger.Debug("session opened", "hosts", p.cfg.Hosts, "keyspace", p.cfg.Keyspace)

	return newSession(session, p.logger), nil
}
