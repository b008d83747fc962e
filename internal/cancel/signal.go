// Package cancel provides the shared stop signal observed by the polling
// loops and the supervisor.
package cancel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Signal is a one-shot, idempotent stop flag. The zero value is not usable;
// construct with New.
type Signal struct {
	once sync.Once
	set  atomic.Bool
	done chan struct{}
}

// New returns an unset signal.
func New() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Set marks the signal. Repeated calls are no-ops.
func (s *Signal) Set() {
	s.once.Do(func() {
		s.set.Store(true)
		close(s.done)
	})
}

// IsSet reports whether Set has been called. It never blocks.
func (s *Signal) IsSet() bool {
	return s.set.Load()
}

// Done returns a channel closed when the signal is set.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Sleep waits for d, returning early when the signal is set or ctx ends.
// It reports true when the full duration elapsed.
func (s *Signal) Sleep(ctx context.Context, d time.Duration) bool {
	if s.IsSet() {
		return false
	}
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}
