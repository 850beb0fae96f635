// Package indicator holds pure functions computing technical indicators
// over oldest-first closing prices.
package indicator

import (
	"math"

	"upbit_bot/internal/domain"

	"gonum.org/v1/gonum/stat"
)

// Bands is one Bollinger band evaluation.
type Bands struct {
	Middle float64
	Upper  float64
	Lower  float64
}

// Bollinger computes bands over the last period closes using population
// variance (divisor = period).
func Bollinger(closes []float64, period int, k float64) (Bands, error) {
	if period <= 0 || len(closes) < period {
		return Bands{}, &domain.InsufficientDataError{Need: period, Have: len(closes)}
	}

	window := closes[len(closes)-period:]
	mean, variance := stat.PopMeanVariance(window, nil)
	if variance < 0 {
		variance = 0
	}
	sd := math.Sqrt(variance)

	return Bands{
		Middle: mean,
		Upper:  mean + k*sd,
		Lower:  mean - k*sd,
	}, nil
}
