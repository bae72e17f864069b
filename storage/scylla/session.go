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

package scylla

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gocql/gocql"
	"github.com/poiesic/bulkload/storage"
	"golang.org/x/sync/errgroup"
)

// statement is a statement accepted by Session.Prepare.
// gocql prepares statements lazily on first execution per host and caches
// them, so holding the text is enough.
type statement struct {
	text string
}

func (s *statement) Statement() string {
	return s.text
}

// Session wraps a *gocql.Session.
type Session struct {
	session *gocql.Session
	closed  atomic.Bool
	logger  *slog.Logger
}

var _ storage.Session = (*Session)(nil)

func newSession(session *gocql.Session, logger *slog.Logger) *Session {
	return &Session{
		session: session,
		logger:  logger,
	}
}

// Prepare returns a handle for statement.
func (s *Session) Prepare(ctx context.Context, stmt string) (storage.PreparedStatement, error) {
	if s.closed.Load() {
		return nil, storage.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &statement{text: stmt}, nil
}

// ExecuteConcurrent runs prepared once per parameter tuple with at most
// concurrency queries in flight. The first failure cancels queries not yet
// sent and is returned.
func (s *Session) ExecuteConcurrent(ctx context.Context, prepared storage.PreparedStatement, params [][]any, concurrency int) error {
	if s.closed.Load() {
		return storage.ErrSessionClosed
	}

	stmt := prepared.Statement()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for _, values := range params {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.session.Query(stmt, values...).WithContext(gctx).Idempotent(true).Exec()
		})
	}
	return g.Wait()
}

// Execute runs a single statement.
func (s *Session) Execute(ctx context.Context, stmt string, values ...any) error {
	if s.closed.Load() {
		return storage.ErrSessionClosed
	}
	return s.session.Query(stmt, values...).WithContext(ctx).Exec()
}

// Close closes the underlying gocql session. Closing twice is a no-op.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.session.Close()
	s.logger.Debug("session closed")
	return nil
}
