package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"upbit_bot/internal/domain"
	"upbit_bot/internal/indicator"
)

// BandRSIBuy buys when the price dips below the lowest Bollinger lower band
// while RSI is oversold.
type BandRSIBuy struct {
	name   string
	feed   Feed
	cfg    Config
	logger *slog.Logger
}

// NewBandRSIBuy creates the band/RSI BUY strategy.
func NewBandRSIBuy(name string, feed Feed, cfg Config) (*BandRSIBuy, error) {
	if err := cfg.Band.Validate(); err != nil {
		return nil, err
	}
	return &BandRSIBuy{
		name:   name,
		feed:   feed,
		cfg:    cfg,
		logger: slog.Default().With("module", "strategy", "strategy", name),
	}, nil
}

func (s *BandRSIBuy) Name() string { return s.name }

// Threshold returns the BUY trigger price for closes along with the RSI.
func (s *BandRSIBuy) Threshold(closes []float64) (threshold, rsi float64, err error) {
	band := s.cfg.Band

	lower := math.Inf(1)
	for _, p := range band.Periods {
		b, err := indicator.Bollinger(closes, p, band.Multiplier)
		if err != nil {
			return 0, 0, err
		}
		lower = math.Min(lower, b.Lower)
	}

	rsi, err = indicator.RSI(closes, band.RSIPeriod)
	if err != nil {
		return 0, 0, err
	}
	return lower - lower*band.Offset, rsi, nil
}

func (s *BandRSIBuy) Evaluate(ctx context.Context, market string) Outcome {
	band := s.cfg.Band

	candles, err := s.feed.Candles(ctx, market, band.CandleUnit, band.CandleCount)
	if err != nil {
		return Fail(err)
	}
	if band.ExcludeLatest && len(candles) > 0 {
		candles = candles[:len(candles)-1]
	}

	threshold, rsi, err := s.Threshold(domain.Closes(candles))
	if err != nil {
		return Fail(fmt.Errorf("%s %s: %w", s.name, market, err))
	}
	if rsi > band.RSICeiling {
		return Skip(fmt.Sprintf("rsi %.0f above %.0f", rsi, band.RSICeiling))
	}

	price, err := s.feed.Price(ctx, market)
	if err != nil {
		return Fail(err)
	}

	s.logger.Debug("buy evaluated",
		slog.String("market", market),
		slog.Float64("price", price),
		slog.Float64("threshold", threshold),
		slog.Float64("rsi", rsi),
	)

	if price > threshold {
		return Skip(fmt.Sprintf("price %v above threshold %.5f", price, threshold))
	}

	var pos *domain.Position
	if band.Sizing == SizingPositionDoubling {
		if pos, err = s.feed.Position(ctx, market); err != nil {
			return Fail(err)
		}
	}

	return buyIntent(market, price, band.Sizing, pos, s.cfg, fmt.Sprintf("RSI %.0f", rsi))
}

// buyIntent sizes and checks a BUY shared by all BUY strategies.
func buyIntent(market string, price float64, policy SizingPolicy, pos *domain.Position, cfg Config, reason string) Outcome {
	if price <= 0 {
		return Skip("no price")
	}

	volume := BuyVolume(policy, cfg.AmountPerTrade, price, pos)
	intent := domain.NewLimitIntent(market, domain.SideBuy, price, volume)

	value := intent.Value()
	if value.LessThan(cfg.MinOrderValue) {
		return Skip(fmt.Sprintf("order value %s below minimum %s", value.StringFixed(0), cfg.MinOrderValue))
	}

	intent.Note = fmt.Sprintf("🛒 BUY %s\nprice: %s\nvolume: %s\ntotal: %s\nreason: %s",
		market, domain.FormatPrice(price), volume, value.StringFixed(0), reason)
	return Order(intent)
}
