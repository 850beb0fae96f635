package strategy_test

import (
	"context"
	"time"

	"upbit_bot/internal/domain"
	"upbit_bot/internal/strategy"

	"github.com/shopspring/decimal"
)

// fakeFeed serves canned data and counts calls.
type fakeFeed struct {
	closes    []float64
	volumes   []float64
	price     float64
	position  *domain.Position
	err       error
	priceErr  error
	calls     map[string]int
	lastCount int
}

func newFeed(closes ...float64) *fakeFeed {
	return &fakeFeed{closes: closes, calls: map[string]int{}}
}

func (f *fakeFeed) Candles(_ context.Context, market string, _, count int) ([]domain.Candle, error) {
	f.calls["candles"]++
	f.lastCount = count
	if f.err != nil {
		return nil, f.err
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := f.closes
	if len(closes) > count {
		closes = closes[len(closes)-count:]
	}
	out := make([]domain.Candle, len(closes))
	for i, c := range closes {
		out[i] = domain.Candle{Market: market, OpenTime: start.Add(time.Duration(i) * time.Minute), Close: c}
		if i < len(f.volumes) {
			out[i].Volume = f.volumes[i]
		}
	}
	return out, nil
}

func (f *fakeFeed) Price(context.Context, string) (float64, error) {
	f.calls["price"]++
	return f.price, f.priceErr
}

func (f *fakeFeed) Position(context.Context, string) (*domain.Position, error) {
	f.calls["position"]++
	return f.position, nil
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func testConfig() strategy.Config {
	band, _ := strategy.Preset("band_rsi")
	return strategy.Config{
		AmountPerTrade:      decimal.NewFromInt(100000),
		TargetProfitPercent: 0.5,
		TargetStopPercent:   -0.75,
		FeeRate:             0.0005,
		MinOrderValue:       decimal.NewFromInt(5000),
		Band:                band,
		Cross:               strategy.DefaultCross(),
		Spike:               strategy.SpikeConfig{Ratio: 300, CandleUnit: 1},
	}
}
