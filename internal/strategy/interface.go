package strategy

import (
	"context"

	"upbit_bot/internal/domain"
)

// OutcomeKind tells the caller what an evaluation decided.
type OutcomeKind int

const (
	OutcomeSkipped OutcomeKind = iota + 1
	OutcomeOrdered
	OutcomeFailed
)

// String returns the string representation of OutcomeKind
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeOrdered:
		return "ordered"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one strategy evaluation. A skip is a normal
// result, not an error.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Intent *domain.OrderIntent
	Err    error
}

// Skip creates a no-op outcome.
func Skip(reason string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Reason: reason}
}

// Order creates an outcome carrying an order intent.
func Order(intent domain.OrderIntent) Outcome {
	return Outcome{Kind: OutcomeOrdered, Intent: &intent}
}

// Fail creates a failed outcome.
func Fail(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// Feed is the market and account data a strategy reads. Every call goes to
// the exchange; nothing is cached between ticks.
type Feed interface {
	// Candles returns up to count candles of unit minutes, oldest-first.
	Candles(ctx context.Context, market string, unit, count int) ([]domain.Candle, error)
	// Price returns the current trade price.
	Price(ctx context.Context, market string) (float64, error)
	// Position returns the held position or nil when nothing is held.
	Position(ctx context.Context, market string) (*domain.Position, error)
}

// Strategy is the interface that all trading strategies must implement.
// It is called sequentially by the orchestrator, one market at a time.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, market string) Outcome
}

// Detector raises notify-only alerts. An empty alert means nothing was found.
type Detector interface {
	Name() string
	Detect(ctx context.Context, market string) (alert string, err error)
}
