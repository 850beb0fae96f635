package infra

import (
	"context"
	"sync"
	"testing"
	"time"

	"upbit_bot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_SpacesSequentialCalls(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	l := NewLimiter(DefaultRequestInterval, clock)

	var dispatched []time.Time
	l.Observe(func(at time.Time, _ time.Duration) {
		dispatched = append(dispatched, at)
	})

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}

	require.Len(t, dispatched, 10)
	for i := 1; i < len(dispatched); i++ {
		gap := dispatched[i].Sub(dispatched[i-1])
		assert.GreaterOrEqual(t, gap, DefaultRequestInterval, "gap %d", i)
	}
	// first call goes out immediately
	assert.Len(t, clock.Sleeps(), 9)
}

func TestLimiter_SpacesConcurrentCalls(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	l := NewLimiter(DefaultRequestInterval, clock)

	var (
		mu         sync.Mutex
		dispatched []time.Time
	)
	l.Observe(func(at time.Time, _ time.Duration) {
		mu.Lock()
		dispatched = append(dispatched, at)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Wait(context.Background()))
		}()
	}
	wg.Wait()

	require.Len(t, dispatched, 10)
	for i := 1; i < len(dispatched); i++ {
		assert.GreaterOrEqual(t, dispatched[i].Sub(dispatched[i-1]), DefaultRequestInterval)
	}
}

func TestLimiter_DispatchesInArrivalOrder(t *testing.T) {
	l := NewLimiter(20*time.Millisecond, nil)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Wait(context.Background()))
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}(i)
		// let waiter i block on the slot before the next one arrives
		time.Sleep(3 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestLimiter_NoWaitAfterIdle(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	l := NewLimiter(DefaultRequestInterval, clock)

	require.NoError(t, l.Wait(context.Background()))
	clock.Advance(time.Second)
	require.NoError(t, l.Wait(context.Background()))

	assert.Empty(t, clock.Sleeps())
}

func TestLimiter_PartialWait(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	l := NewLimiter(DefaultRequestInterval, clock)

	require.NoError(t, l.Wait(context.Background()))
	clock.Advance(40 * time.Millisecond)
	require.NoError(t, l.Wait(context.Background()))

	assert.Equal(t, []time.Duration{60 * time.Millisecond}, clock.Sleeps())
}

func TestLimiter_CancelledContext(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	l := NewLimiter(DefaultRequestInterval, clock)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)

	// the slot is released after a failed wait
	require.NoError(t, l.Wait(context.Background()))
}

func TestLimiter_SystemClock(t *testing.T) {
	l := NewLimiter(5*time.Millisecond, nil)

	var dispatched []time.Time
	l.Observe(func(at time.Time, _ time.Duration) {
		dispatched = append(dispatched, at)
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	for i := 1; i < len(dispatched); i++ {
		assert.GreaterOrEqual(t, dispatched[i].Sub(dispatched[i-1]), 5*time.Millisecond)
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second},
		{10, 60 * time.Second},
		{-1, 1 * time.Second},
	}

	for _, tt := range tests {
		if got := CalculateBackoff(tt.retry); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}
