package strategy

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// SizingPolicy decides BUY volume.
type SizingPolicy string

const (
	// SizingFixedAmount always spends AmountPerTrade.
	SizingFixedAmount SizingPolicy = "fixed_amount"
	// SizingPositionDoubling buys twice the held units when a position
	// exists, otherwise AmountPerTrade. Repeated dips grow the position
	// without bound.
	SizingPositionDoubling SizingPolicy = "position_doubling"
)

// Config is immutable for the lifetime of a run.
type Config struct {
	AmountPerTrade      decimal.Decimal
	TargetProfitPercent float64
	TargetStopPercent   float64
	FeeRate             float64
	MinOrderValue       decimal.Decimal
	MinPositionValue    decimal.Decimal

	Band  BandConfig
	Cross CrossConfig
	Spike SpikeConfig
}

// BandConfig parameterizes the band/RSI BUY rule.
type BandConfig struct {
	Periods       []int
	Multiplier    float64
	Offset        float64
	CandleUnit    int
	CandleCount   int
	ExcludeLatest bool
	RSIPeriod     int
	RSICeiling    float64
	Sizing        SizingPolicy
}

// CrossConfig parameterizes the SMA crossover BUY rule.
type CrossConfig struct {
	Short       int
	Long        int
	CandleUnit  int
	CandleCount int
	Sizing      SizingPolicy
}

// SpikeConfig parameterizes the volume spike alert.
type SpikeConfig struct {
	Ratio      float64
	CandleUnit int
}

var presets = map[string]BandConfig{
	"band_rsi": {
		Periods:     []int{20, 60},
		Multiplier:  2,
		Offset:      0.003,
		CandleUnit:  1,
		CandleCount: 200,
		RSIPeriod:   14,
		RSICeiling:  25,
		Sizing:      SizingFixedAmount,
	},
	"band_rsi_scalp": {
		Periods:     []int{20, 60},
		Multiplier:  2,
		Offset:      0.002,
		CandleUnit:  1,
		CandleCount: 200,
		RSIPeriod:   14,
		RSICeiling:  30,
		Sizing:      SizingFixedAmount,
	},
	"deep_detect": {
		Periods:     []int{100},
		Multiplier:  2,
		Offset:      0,
		CandleUnit:  15,
		CandleCount: 200,
		RSIPeriod:   14,
		RSICeiling:  25,
		Sizing:      SizingPositionDoubling,
	},
}

// Preset returns a copy of a named band/RSI preset.
func Preset(name string) (BandConfig, error) {
	p, ok := presets[name]
	if !ok {
		return BandConfig{}, fmt.Errorf("unknown band preset %q", name)
	}
	p.Periods = append([]int(nil), p.Periods...)
	return p, nil
}

// DefaultCross returns the SMA(20)/SMA(50) crossover on 1 minute candles.
func DefaultCross() CrossConfig {
	return CrossConfig{Short: 20, Long: 50, CandleUnit: 1, CandleCount: 200, Sizing: SizingFixedAmount}
}

// Validate checks the band configuration.
func (c BandConfig) Validate() error {
	if len(c.Periods) == 0 {
		return fmt.Errorf("at least one bollinger period is required")
	}
	maxPeriod := 0
	for _, p := range c.Periods {
		if p <= 1 {
			return fmt.Errorf("bollinger period must be > 1, got %d", p)
		}
		maxPeriod = max(maxPeriod, p)
	}
	if c.CandleCount < maxPeriod+1 || c.CandleCount > 200 {
		return fmt.Errorf("candle count %d must be in [%d, 200]", c.CandleCount, maxPeriod+1)
	}
	if c.Multiplier < 0 {
		return fmt.Errorf("band multiplier must not be negative")
	}
	if !slices.Contains([]int{1, 3, 5, 10, 15, 30, 60, 240}, c.CandleUnit) {
		return fmt.Errorf("unsupported candle unit %d", c.CandleUnit)
	}
	if c.Offset < 0 || c.Offset >= 1 {
		return fmt.Errorf("offset must be in [0, 1)")
	}
	if c.RSIPeriod <= 0 {
		return fmt.Errorf("rsi period must be positive")
	}
	if c.RSICeiling < 0 || c.RSICeiling > 100 {
		return fmt.Errorf("rsi ceiling must be in [0, 100]")
	}
	return validateSizing(c.Sizing)
}

func validateSizing(p SizingPolicy) error {
	switch p {
	case SizingFixedAmount, SizingPositionDoubling:
		return nil
	default:
		return fmt.Errorf("unknown sizing policy %q", p)
	}
}
