package infra

import (
	"context"
	"sync"
	"time"
)

// DefaultRequestInterval keeps the bot under 10 requests per second.
const DefaultRequestInterval = 100 * time.Millisecond

// Limiter enforces a minimum spacing between dispatches. A single instance is
// shared by every gateway call. Waiters queue on a one-slot channel, which the
// runtime serves in FIFO order, so later markets in a tick are never starved.
type Limiter struct {
	interval time.Duration
	clock    Clock
	slot     chan struct{}

	mu   sync.Mutex
	last time.Time

	// observe is called with the dispatch time and the time spent waiting,
	// while the slot is still held. Optional.
	observe func(dispatchedAt time.Time, waited time.Duration)
}

// NewLimiter creates a limiter. A nil clock means the system clock.
func NewLimiter(interval time.Duration, clock Clock) *Limiter {
	if clock == nil {
		clock = SystemClock{}
	}
	l := &Limiter{
		interval: interval,
		clock:    clock,
		slot:     make(chan struct{}, 1),
	}
	l.slot <- struct{}{}
	return l
}

// Observe registers a dispatch observer. It must be set before first use.
func (l *Limiter) Observe(fn func(dispatchedAt time.Time, waited time.Duration)) {
	l.observe = fn
}

// Wait blocks until the caller may dispatch. It returns ctx.Err() if the
// context ends first; the slot is not consumed in that case.
func (l *Limiter) Wait(ctx context.Context) error {
	start := l.clock.Now()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.slot:
	}
	defer func() { l.slot <- struct{}{} }()

	l.mu.Lock()
	last := l.last
	l.mu.Unlock()

	if !last.IsZero() {
		if d := last.Add(l.interval).Sub(l.clock.Now()); d > 0 {
			if err := l.clock.Sleep(ctx, d); err != nil {
				return err
			}
		}
	}

	// Stamp the actual dispatch time so a late wake-up never shortens the
	// next gap.
	now := l.clock.Now()
	l.mu.Lock()
	l.last = now
	l.mu.Unlock()

	if l.observe != nil {
		l.observe(now, now.Sub(start))
	}
	return nil
}

// Interval returns the configured spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
