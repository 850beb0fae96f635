package indicator

import "upbit_bot/internal/domain"

// RSI computes the exchange-flavoured relative strength index. Average gain
// and loss are a single-seed EMA with factor 1/weight, seeded by the first
// gap. A window with no losses yields 100, including a flat one.
func RSI(closes []float64, weight int) (float64, error) {
	if weight <= 0 || len(closes) < weight+1 {
		return 0, &domain.InsufficientDataError{Need: weight + 1, Have: len(closes)}
	}

	factor := 1 / float64(weight)
	var avgGain, avgLoss float64

	for i := 0; i < len(closes)-1; i++ {
		gap := closes[i+1] - closes[i]
		gain, loss := 0.0, 0.0
		if gap > 0 {
			gain = gap
		} else if gap < 0 {
			loss = -gap
		}

		if i == 0 {
			avgGain, avgLoss = gain, loss
			continue
		}
		avgGain = gain*factor + avgGain*(1-factor)
		avgLoss = loss*factor + avgLoss*(1-factor)
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}
