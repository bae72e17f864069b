package mock

import (
	"context"
	"sync"

	"github.com/poiesic/bulkload/storage"
)

// MockProvider is a test double for storage.SessionProvider.
type MockProvider struct {
	// NewSessionFunc is called by NewSession if set, with the zero-based
	// index of the session being opened.
	// If nil, a fresh MockSession is returned.
	NewSessionFunc func(ctx context.Context, index int) (*MockSession, error)

	mu       sync.Mutex
	sessions []*MockSession
	calls    int
}

var _ storage.SessionProvider = (*MockProvider)(nil)

// NewMockProvider creates a provider with default behavior.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// NewSession opens a new MockSession.
func (p *MockProvider) NewSession(ctx context.Context) (storage.Session, error) {
	p.mu.Lock()
	index := p.calls
	p.calls++
	p.mu.Unlock()

	var session *MockSession
	if p.NewSessionFunc != nil {
		s, err := p.NewSessionFunc(ctx, index)
		if err != nil {
			return nil, err
		}
		session = s
	} else {
		session = NewMockSession()
	}

	p.mu.Lock()
	p.sessions = append(p.sessions, session)
	p.mu.Unlock()
	return session, nil
}

// Sessions returns every session handed out so far.
func (p *MockProvider) Sessions() []*MockSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*MockSession, len(p.sessions))
	copy(out, p.sessions)
	return out
}

// Rows returns the rows committed across all sessions.
func (p *MockProvider) Rows() [][]any {
	var rows [][]any
	for _, s := range p.Sessions() {
		rows = append(rows, s.Rows()...)
	}
	return rows
}

// OpenSessions returns the number of sessions not yet closed.
func (p *MockProvider) OpenSessions() int {
	open := 0
	for _, s := range p.Sessions() {
		if !s.Closed() {
			open++
		}
	}
	return open
}

// Calls returns the number of NewSession calls, failed ones included.
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
