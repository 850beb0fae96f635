package strategy

import (
	"context"
	"fmt"

	"upbit_bot/internal/domain"
)

// VolumeSpike alerts when the latest candle's volume is at least Ratio times
// the previous candle's. It never orders.
type VolumeSpike struct {
	feed Feed
	cfg  SpikeConfig
}

// NewVolumeSpike creates the detector.
func NewVolumeSpike(feed Feed, cfg SpikeConfig) *VolumeSpike {
	if cfg.CandleUnit == 0 {
		cfg.CandleUnit = 1
	}
	return &VolumeSpike{feed: feed, cfg: cfg}
}

func (d *VolumeSpike) Name() string { return "volume_spike" }

// Spiked compares the last two candles.
func (d *VolumeSpike) Spiked(candles []domain.Candle) (bool, error) {
	if len(candles) < 2 {
		return false, &domain.InsufficientDataError{Need: 2, Have: len(candles)}
	}
	latest, previous := candles[len(candles)-1], candles[len(candles)-2]
	if previous.Volume <= 0 {
		return false, nil
	}
	return latest.Volume >= previous.Volume*d.cfg.Ratio, nil
}

func (d *VolumeSpike) Detect(ctx context.Context, market string) (string, error) {
	candles, err := d.feed.Candles(ctx, market, d.cfg.CandleUnit, 2)
	if err != nil {
		return "", err
	}

	spiked, err := d.Spiked(candles)
	if err != nil || !spiked {
		return "", err
	}

	latest, previous := candles[len(candles)-1], candles[len(candles)-2]
	return fmt.Sprintf("🚨 VOLUME SPIKE %s\nvolume: %.4f (prev %.4f, x%.0f)\nprice: %s",
		market, latest.Volume, previous.Volume, latest.Volume/previous.Volume, domain.FormatPrice(latest.Close)), nil
}
