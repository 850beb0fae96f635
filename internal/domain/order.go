package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

// OrderState mirrors the exchange's order states.
type OrderState string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"

	OrderTypeLimit = "LIMIT"

	OrderStateWait   OrderState = "wait"
	OrderStateDone   OrderState = "done"
	OrderStateCancel OrderState = "cancel"
)

// OrderIntent is produced by a strategy and consumed once by an order sink.
type OrderIntent struct {
	Market string
	Side   Side
	Price  float64
	Volume decimal.Decimal
	Type   string
	// Note is a human readable summary used in notifications.
	Note string
}

// NewLimitIntent creates a limit order intent.
func NewLimitIntent(market string, side Side, price float64, volume decimal.Decimal) OrderIntent {
	return OrderIntent{
		Market: market,
		Side:   side,
		Price:  price,
		Volume: volume,
		Type:   OrderTypeLimit,
	}
}

// Value returns price * volume in quote currency.
func (o OrderIntent) Value() decimal.Decimal {
	return decimal.NewFromFloat(o.Price).Mul(o.Volume)
}

// Order is an order as reported by the exchange.
type Order struct {
	ID              string
	Market          string
	Side            Side
	Price           float64
	Volume          float64
	RemainingVolume float64
	State           OrderState
	CreatedAt       time.Time
}

// IsOpen checks if the order is still waiting to be filled.
func (o *Order) IsOpen() bool {
	return o.State == OrderStateWait
}

// CancelResult is the outcome of a single cancellation.
type CancelResult struct {
	OrderID string
	Order   *Order
	Err     error
}
