// Package guard bounds automation-facing long-running operations: a
// sliding-window rate limit per operation key and an enforced
// wall-clock timeout. Both are explicit components with an injectable
// clock and a reset hook, not process globals, so tests can drive them
// deterministically.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/rustyeddy/stratengine/errs"
)

// Limiter enforces at most Max calls per key within Window.
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	now    func() time.Time
	calls  map[string][]time.Time
}

func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{
		window: window,
		max:    max,
		now:    time.Now,
		calls:  make(map[string][]time.Time),
	}
}

// SetClock replaces the time source; tests use this.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Allow records one call for key and reports whether it fits in the
// window. Denied calls are not recorded.
func (l *Limiter) Allow(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.calls[key][:0]
	for _, t := range l.calls[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.max {
		l.calls[key] = kept
		return &errs.RateLimitError{Key: key}
	}

	l.calls[key] = append(kept, now)
	return nil
}

// Reset clears all recorded calls.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = make(map[string][]time.Time)
}

// RunWithTimeout executes fn under a wall-clock budget. On expiry the
// operation is abandoned outright (the goroutine keeps running but
// its result is discarded) and a TaskTimeoutError is returned. This
// is deliberate: backtests and optimizations have no graceful
// cancellation points.
func RunWithTimeout(ctx context.Context, key string, d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &errs.TaskTimeoutError{Key: key, Seconds: d.Seconds()}
	}
}
