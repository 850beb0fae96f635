package domain

import "github.com/shopspring/decimal"

// PricePrecision returns the number of fractional digits used to display
// a KRW price of the given magnitude.
func PricePrecision(price float64) int {
	switch {
	case price >= 1000:
		return 0
	case price >= 100:
		return 1
	case price >= 10:
		return 2
	case price >= 1:
		return 3
	case price >= 0.1:
		return 4
	default:
		return 8
	}
}

// FormatPrice renders price with PricePrecision digits.
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(int32(PricePrecision(price)))
}
