package ingestion

import (
	"time"
)

// monitor polls the progress counter and feeds the tracker until every row
// is committed or the abort flag is raised. It never mutates shared state.
type monitor struct {
	counter  *ProgressCounter
	total    int64
	abort    *AbortFlag
	interval time.Duration
	tracker  *ProgressTracker
	done     chan struct{}
}

func newMonitor(counter *ProgressCounter, total int, abort *AbortFlag, interval time.Duration, tracker *ProgressTracker) *monitor {
	return &monitor{
		counter:  counter,
		total:    int64(total),
		abort:    abort,
		interval: interval,
		tracker:  tracker,
		done:     make(chan struct{}),
	}
}

func (m *monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	last := int64(-1)
	render := func() int64 {
		current := m.counter.Load()
		if current != last {
			m.tracker.Update(int(current))
			last = current
		}
		return current
	}

	for {
		if render() >= m.total {
			return
		}
		select {
		case <-m.abort.Done():
			render()
			return
		case <-ticker.C:
		}
	}
}

// wait blocks until the monitor exits or timeout elapses.
// It reports whether the monitor exited.
func (m *monitor) wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-m.done:
		return true
	case <-timer.C:
		return false
	}
}
