package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"upbit_bot/internal/domain"
	"upbit_bot/internal/indicator"
)

// SMACrossBuy implements a golden cross BUY: the short SMA was at or below
// the long SMA on the previous candle and is above it on the latest one.
// It is stateless; both samples are derived from the same candle fetch.
type SMACrossBuy struct {
	feed   Feed
	cfg    Config
	logger *slog.Logger
}

// NewSMACrossBuy creates a new instance.
func NewSMACrossBuy(feed Feed, cfg Config) (*SMACrossBuy, error) {
	c := cfg.Cross
	if c.Short <= 0 || c.Short >= c.Long {
		return nil, fmt.Errorf("sma cross: short period must be less than long period")
	}
	if c.CandleCount < c.Long+1 {
		return nil, fmt.Errorf("sma cross: candle count %d must be at least %d", c.CandleCount, c.Long+1)
	}
	if err := validateSizing(c.Sizing); err != nil {
		return nil, err
	}
	return &SMACrossBuy{
		feed:   feed,
		cfg:    cfg,
		logger: slog.Default().With("module", "strategy", "strategy", "sma_cross"),
	}, nil
}

func (s *SMACrossBuy) Name() string { return "sma_cross" }

// Crossed reports a golden cross between the last two samples of closes.
func (s *SMACrossBuy) Crossed(closes []float64) (bool, error) {
	c := s.cfg.Cross
	if len(closes) < c.Long+1 {
		return false, &domain.InsufficientDataError{Need: c.Long + 1, Have: len(closes)}
	}

	short, err := indicator.SMASeries(closes, c.Short)
	if err != nil {
		return false, err
	}
	long, err := indicator.SMASeries(closes, c.Long)
	if err != nil {
		return false, err
	}

	n := len(closes)
	prevShort, prevLong := short[n-2], long[n-2]
	currShort, currLong := short[n-1], long[n-1]

	return prevShort <= prevLong && currShort > currLong, nil
}

func (s *SMACrossBuy) Evaluate(ctx context.Context, market string) Outcome {
	c := s.cfg.Cross

	candles, err := s.feed.Candles(ctx, market, c.CandleUnit, c.CandleCount)
	if err != nil {
		return Fail(err)
	}

	crossed, err := s.Crossed(domain.Closes(candles))
	if err != nil {
		return Fail(fmt.Errorf("sma_cross %s: %w", market, err))
	}
	if !crossed {
		return Skip("no golden cross")
	}

	price, err := s.feed.Price(ctx, market)
	if err != nil {
		return Fail(err)
	}

	var pos *domain.Position
	if c.Sizing == SizingPositionDoubling {
		if pos, err = s.feed.Position(ctx, market); err != nil {
			return Fail(err)
		}
	}

	s.logger.Info("golden cross", slog.String("market", market), slog.Float64("price", price))
	return buyIntent(market, price, c.Sizing, pos, s.cfg, fmt.Sprintf("SMA(%d) crossed above SMA(%d)", c.Short, c.Long))
}
