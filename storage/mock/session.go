package mock

import (
	"context"
	"sync"

	"github.com/poiesic/bulkload/storage"
)

// Statement is the prepared statement returned by MockSession.
type Statement struct {
	Text string
}

// Statement returns the statement text.
func (s *Statement) Statement() string {
	return s.Text
}

// Execution is one recorded call to Execute.
type Execution struct {
	Statement string
	Values    []any
}

// MockSession is a test double for storage.Session.
// It allows custom behavior injection via function fields.
// It is safe for concurrent use.
type MockSession struct {
	// PrepareFunc is called by Prepare if set.
	PrepareFunc func(ctx context.Context, statement string) (storage.PreparedStatement, error)

	// ExecuteConcurrentFunc is called by ExecuteConcurrent if set.
	// Rows are recorded only when it returns nil.
	ExecuteConcurrentFunc func(ctx context.Context, prepared storage.PreparedStatement, params [][]any, concurrency int) error

	// ExecuteFunc is called by Execute if set.
	// The execution is recorded only when it returns nil.
	ExecuteFunc func(ctx context.Context, statement string, values ...any) error

	mu         sync.Mutex
	prepared   []string
	rows       [][]any
	executions []Execution
	batchCalls int
	closed     bool
	closeCount int
}

var _ storage.Session = (*MockSession)(nil)

// NewMockSession creates a session that accepts everything.
func NewMockSession() *MockSession {
	return &MockSession{}
}

// Prepare records the statement and returns a *Statement.
func (m *MockSession) Prepare(ctx context.Context, statement string) (storage.PreparedStatement, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, storage.ErrSessionClosed
	}
	m.prepared = append(m.prepared, statement)
	m.mu.Unlock()

	if m.PrepareFunc != nil {
		return m.PrepareFunc(ctx, statement)
	}
	return &Statement{Text: statement}, nil
}

// ExecuteConcurrent records params as committed rows.
func (m *MockSession) ExecuteConcurrent(ctx context.Context, prepared storage.PreparedStatement, params [][]any, concurrency int) error {
	m.mu.Lock()
	m.batchCalls++
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return storage.ErrSessionClosed
	}

	if m.ExecuteConcurrentFunc != nil {
		if err := m.ExecuteConcurrentFunc(ctx, prepared, params, concurrency); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.rows = append(m.rows, params...)
	m.mu.Unlock()
	return nil
}

// Execute records a single statement execution.
func (m *MockSession) Execute(ctx context.Context, statement string, values ...any) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return storage.ErrSessionClosed
	}

	if m.ExecuteFunc != nil {
		if err := m.ExecuteFunc(ctx, statement, values...); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.executions = append(m.executions, Execution{Statement: statement, Values: values})
	m.mu.Unlock()
	return nil
}

// Close marks the session closed.
func (m *MockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCount++
	m.closed = true
	return nil
}

// Rows returns the parameter tuples committed through ExecuteConcurrent.
func (m *MockSession) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, len(m.rows))
	copy(out, m.rows)
	return out
}

// Executions returns the recorded Execute calls.
func (m *MockSession) Executions() []Execution {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Execution, len(m.executions))
	copy(out, m.executions)
	return out
}

// Prepared returns the statements passed to Prepare.
func (m *MockSession) Prepared() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prepared))
	copy(out, m.prepared)
	return out
}

// BatchCalls returns the number of ExecuteConcurrent calls, failed ones included.
func (m *MockSession) BatchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

// Closed reports whether Close has been called.
func (m *MockSession) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CloseCount returns how many times Close was called.
func (m *MockSession) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}
