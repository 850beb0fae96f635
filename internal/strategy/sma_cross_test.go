package strategy_test

import (
	"context"
	"testing"

	"upbit_bot/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMACrossBuy_Crossed(t *testing.T) {
	cfg := testConfig()
	cfg.Cross.Short = 3
	cfg.Cross.Long = 5
	cfg.Cross.CandleCount = 10

	s, err := strategy.NewSMACrossBuy(newFeed(), cfg)
	require.NoError(t, err)

	// Short(3) = 133 > Long(5) = 120 after the jump, both 100 before
	crossed, err := s.Crossed([]float64{100, 100, 100, 100, 100, 200})
	require.NoError(t, err)
	assert.True(t, crossed, "golden cross")

	// already above on the previous sample
	crossed, err = s.Crossed([]float64{100, 100, 100, 100, 100, 200, 300})
	require.NoError(t, err)
	assert.False(t, crossed, "cross must happen on the latest sample")

	// dead cross
	crossed, err = s.Crossed([]float64{100, 100, 100, 100, 100, 50})
	require.NoError(t, err)
	assert.False(t, crossed)

	_, err = s.Crossed([]float64{1, 2, 3, 4, 5})
	assert.Error(t, err)
}

func TestSMACrossBuy_Evaluate(t *testing.T) {
	closes := append(flat(60, 100), 200)
	feed := newFeed(closes...)
	feed.price = 200

	s, err := strategy.NewSMACrossBuy(feed, testConfig())
	require.NoError(t, err)

	out := s.Evaluate(context.Background(), "KRW-XRP")
	require.Equal(t, strategy.OutcomeOrdered, out.Kind, out.Reason)
	assert.Equal(t, "500", out.Intent.Volume.String())
	assert.Equal(t, "sma_cross", s.Name())

	feed = newFeed(flat(61, 100)...)
	s, err = strategy.NewSMACrossBuy(feed, testConfig())
	require.NoError(t, err)
	out = s.Evaluate(context.Background(), "KRW-XRP")
	assert.Equal(t, strategy.OutcomeSkipped, out.Kind)
	assert.Zero(t, feed.calls["price"])
}

func TestNewSMACrossBuy_Invalid(t *testing.T) {
	cfg := testConfig()
	cfg.Cross.Short = 50
	_, err := strategy.NewSMACrossBuy(newFeed(), cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Cross.CandleCount = 40
	_, err = strategy.NewSMACrossBuy(newFeed(), cfg)
	assert.Error(t, err)
}
