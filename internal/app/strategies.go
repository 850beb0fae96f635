package app

import (
	"fmt"

	"upbit_bot/internal/domain"
	"upbit_bot/internal/infra"
	"upbit_bot/internal/strategy"
)

// StrategyConfig builds the immutable strategy configuration from the
// trading section: the band preset is looked up and then overridden by every
// field set in yaml.
func StrategyConfig(t infra.TradingConfig) (strategy.Config, error) {
	band, err := strategy.Preset(t.BandRSI.Preset)
	if err != nil {
		return strategy.Config{}, &domain.ConfigError{Field: "trading.band_rsi.preset", Err: err}
	}

	o := t.BandRSI
	if len(o.Periods) > 0 {
		band.Periods = append([]int(nil), o.Periods...)
	}
	if o.Multiplier != nil {
		band.Multiplier = *o.Multiplier
	}
	if o.Offset != nil {
		band.Offset = *o.Offset
	}
	if o.CandleUnit != nil {
		band.CandleUnit = *o.CandleUnit
	}
	if o.CandleCount != nil {
		band.CandleCount = *o.CandleCount
	}
	if o.ExcludeLatest != nil {
		band.ExcludeLatest = *o.ExcludeLatest
	}
	if o.RSIPeriod != nil {
		band.RSIPeriod = *o.RSIPeriod
	}
	if o.RSICeiling != nil {
		band.RSICeiling = *o.RSICeiling
	}
	if o.Sizing != "" {
		band.Sizing = strategy.SizingPolicy(o.Sizing)
	}
	if err := band.Validate(); err != nil {
		return strategy.Config{}, &domain.ConfigError{Field: "trading.band_rsi", Err: err}
	}

	cross := strategy.DefaultCross()
	cross.Short = t.SMACross.Short
	cross.Long = t.SMACross.Long

	return strategy.Config{
		AmountPerTrade:      t.AmountPerTrade,
		TargetProfitPercent: t.TargetProfitPercent,
		TargetStopPercent:   t.TargetStopPercent,
		FeeRate:             t.FeeRate,
		MinOrderValue:       t.MinOrderValue,
		MinPositionValue:    t.MinPositionValue,
		Band:                band,
		Cross:               cross,
		Spike:               strategy.SpikeConfig{Ratio: t.VolumeSpike.Ratio, CandleUnit: 1},
	}, nil
}

// buyStrategies builds the BUY strategies in configured order.
func buyStrategies(names []string, feed strategy.Feed, cfg strategy.Config, preset string) ([]strategy.Strategy, error) {
	out := make([]strategy.Strategy, 0, len(names))
	for _, name := range names {
		switch name {
		case "band_rsi":
			s, err := strategy.NewBandRSIBuy(preset, feed, cfg)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		case "sma_cross":
			s, err := strategy.NewSMACrossBuy(feed, cfg)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		default:
			return nil, fmt.Errorf("unknown buy strategy %q", name)
		}
	}
	return out, nil
}
