package infra

import (
	"math"
	"time"
)

const (
	backoffBaseDelay = 1 * time.Second
	backoffMaxDelay  = 60 * time.Second
)

// CalculateBackoff returns the exponential reconnect delay for retryCount,
// capped at one minute.
func CalculateBackoff(retryCount int) time.Duration {
	// 2^6 = 64s already exceeds the cap
	if retryCount > 6 {
		return backoffMaxDelay
	}
	if retryCount < 0 {
		retryCount = 0
	}
	delay := backoffBaseDelay * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > backoffMaxDelay {
		delay = backoffMaxDelay
	}
	return delay
}
