package strategy

import (
	"upbit_bot/internal/domain"

	"github.com/shopspring/decimal"
)

// BuyVolume sizes a BUY order under policy. The result is rounded up to 8
// fractional digits.
func BuyVolume(policy SizingPolicy, amount decimal.Decimal, price float64, pos *domain.Position) decimal.Decimal {
	if policy == SizingPositionDoubling && pos != nil && pos.Balance.IsPositive() {
		return pos.Balance.Mul(decimal.NewFromInt(2)).RoundCeil(8)
	}
	return domain.RoundUp8(amount.InexactFloat64() / price)
}
