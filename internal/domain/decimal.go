package domain

import "github.com/shopspring/decimal"

// VolumePrecision is the number of fractional digits accepted for volumes.
const VolumePrecision = 8

// RoundUp8 rounds x up to 8 fractional digits. Volumes are never rounded
// down so an order cannot fall under the exchange minimum.
func RoundUp8(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).RoundCeil(VolumePrecision)
}
