package indicator

import (
	"upbit_bot/internal/domain"

	"github.com/markcheno/go-talib"
)

// SMA returns the mean of the last period closes.
func SMA(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period {
		return 0, &domain.InsufficientDataError{Need: period, Have: len(closes)}
	}

	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period), nil
}

// SMASeries returns the rolling SMA aligned with closes. The first period-1
// entries are zero as talib leaves them unset.
func SMASeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 || len(closes) < period {
		return nil, &domain.InsufficientDataError{Need: period, Have: len(closes)}
	}
	return talib.Sma(closes, period), nil
}
