package domain

import "github.com/shopspring/decimal"

// Position is a snapshot of a held asset. It is read from the exchange on
// every tick and never cached. Balance and Locked keep the exchange's exact
// decimal volume.
type Position struct {
	Market       string
	Currency     string
	UnitCurrency string
	Balance      decimal.Decimal
	Locked       decimal.Decimal
	AvgBuyPrice  float64
}

// IsHeld reports whether any units are held, available or locked.
func (p *Position) IsHeld() bool {
	return p != nil && (p.Balance.IsPositive() || p.Locked.IsPositive())
}

// Cost returns the position value at the average buy price.
func (p *Position) Cost() float64 {
	return p.AvgBuyPrice * p.Balance.InexactFloat64()
}

// ProfitRate returns the unrealized profit in percent at price.
func (p *Position) ProfitRate(price float64) float64 {
	if p.AvgBuyPrice == 0 {
		return 0
	}
	return (price - p.AvgBuyPrice) / p.AvgBuyPrice * 100
}
