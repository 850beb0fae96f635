// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"sync"
	"time"
)

// FakeClock is a virtual clock. Sleep advances time instantly and tickers
// fire only when Fire is called.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	tick   chan time.Time
	ready  chan struct{}
}

// NewFakeClock creates a clock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start, ready: make(chan struct{})}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return nil
}

// Advance moves the clock forward without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Sleeps returns every duration passed to Sleep.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// NewTicker supports a single ticker per clock.
func (c *FakeClock) NewTicker(time.Duration) (<-chan time.Time, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = make(chan time.Time)
	close(c.ready)
	return c.tick, func() {}
}

// Fire delivers one tick and blocks until the consumer receives it.
func (c *FakeClock) Fire(ctx context.Context) bool {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return false
	}
	c.mu.Lock()
	tick, now := c.tick, c.now
	c.mu.Unlock()

	select {
	case tick <- now:
		return true
	case <-ctx.Done():
		return false
	}
}
