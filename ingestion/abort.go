package ingestion

import (
	"sync"
	"sync/atomic"
)

// AbortFlag is a set-once signal shared by the workers of one ingestion.
// Once set it is never cleared.
type AbortFlag struct {
	set   atomic.Bool
	once  sync.Once
	done  chan struct{}
	cause error
}

// NewAbortFlag returns an unset flag.
func NewAbortFlag() *AbortFlag {
	return &AbortFlag{done: make(chan struct{})}
}

// Set raises the flag and records cause.
// It reports whether this call was the one that raised it; later calls
// leave the recorded cause unchanged.
func (f *AbortFlag) Set(cause error) bool {
	first := false
	f.once.Do(func() {
		f.cause = cause
		f.set.Store(true)
		close(f.done)
		first = true
	})
	return first
}

// IsSet reports whether the flag has been raised.
func (f *AbortFlag) IsSet() bool {
	return f.set.Load()
}

// Done returns a channel closed when the flag is raised.
func (f *AbortFlag) Done() <-chan struct{} {
	return f.done
}

// Cause returns the cause passed by the first Set, or nil if the flag is not
// set.
func (f *AbortFlag) Cause() error {
	if !f.IsSet() {
		return nil
	}
	return f.cause
}
