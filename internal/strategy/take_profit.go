package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"upbit_bot/internal/domain"
)

// ProfitReport is the informational breakdown attached to a SELL.
type ProfitReport struct {
	BuyPrice float64
	Gross    float64
	BuyFee   float64
	SellFee  float64
	Net      float64
}

// NetProfit reconstructs the buy price from the profit rate and subtracts
// both trading fees from the gross profit.
func NetProfit(price, profitRate, volume, feeRate float64) ProfitReport {
	buyPrice := price / (1 + profitRate/100)
	gross := (price - buyPrice) * volume
	buyFee := buyPrice * volume * feeRate
	sellFee := price * volume * feeRate

	return ProfitReport{
		BuyPrice: buyPrice,
		Gross:    gross,
		BuyFee:   buyFee,
		SellFee:  sellFee,
		Net:      gross - buyFee - sellFee,
	}
}

// TakeProfitSell exits the whole position when the profit rate reaches the
// take-profit or stop-loss threshold. Both bounds are inclusive.
type TakeProfitSell struct {
	feed   Feed
	cfg    Config
	logger *slog.Logger
}

// NewTakeProfitSell creates the SELL strategy.
func NewTakeProfitSell(feed Feed, cfg Config) *TakeProfitSell {
	return &TakeProfitSell{
		feed:   feed,
		cfg:    cfg,
		logger: slog.Default().With("module", "strategy", "strategy", "take_profit"),
	}
}

func (s *TakeProfitSell) Name() string { return "take_profit" }

// ShouldSell reports whether profitRate crosses either threshold.
func (s *TakeProfitSell) ShouldSell(profitRate float64) bool {
	return profitRate >= s.cfg.TargetProfitPercent || profitRate <= s.cfg.TargetStopPercent
}

func (s *TakeProfitSell) Evaluate(ctx context.Context, market string) Outcome {
	price, err := s.feed.Price(ctx, market)
	if err != nil {
		return Fail(err)
	}

	pos, err := s.feed.Position(ctx, market)
	if err != nil {
		return Fail(err)
	}
	if pos == nil || !pos.Balance.IsPositive() {
		return Skip("no position")
	}
	if s.cfg.MinPositionValue.IsPositive() && pos.Cost() <= s.cfg.MinPositionValue.InexactFloat64() {
		return Skip(fmt.Sprintf("position value %.0f below minimum", pos.Cost()))
	}

	rate := pos.ProfitRate(price)
	s.logger.Debug("sell evaluated",
		slog.String("market", market),
		slog.Float64("price", price),
		slog.Float64("avg_buy_price", pos.AvgBuyPrice),
		slog.Float64("profit_rate", rate),
	)

	if !s.ShouldSell(rate) {
		return Skip(fmt.Sprintf("profit rate %.2f%% within band", rate))
	}

	// full exit: the exact held volume, never rounded up past it
	volume := pos.Balance
	intent := domain.NewLimitIntent(market, domain.SideSell, price, volume)

	report := NetProfit(price, rate, volume.InexactFloat64(), s.cfg.FeeRate)
	head := "📈 TAKE PROFIT"
	if rate < s.cfg.TargetProfitPercent {
		head = "📉 STOP LOSS"
	}
	intent.Note = fmt.Sprintf("%s %s\nprofit rate: %.2f%%\nprice: %s\nvolume: %s\ntotal: %s\nnet profit: %.0f",
		head, market, rate, domain.FormatPrice(price), volume, intent.Value().StringFixed(0), report.Net)

	return Order(intent)
}
