package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPosition_IsHeld(t *testing.T) {
	var none *Position
	if none.IsHeld() {
		t.Error("nil position must not be held")
	}
	if (&Position{}).IsHeld() {
		t.Error("empty position must not be held")
	}
	if !(&Position{Locked: decimal.RequireFromString("0.1")}).IsHeld() {
		t.Error("locked units count as held")
	}
	if !(&Position{Balance: decimal.NewFromInt(2)}).IsHeld() {
		t.Error("balance counts as held")
	}
}

func TestPosition_ProfitRate(t *testing.T) {
	p := &Position{AvgBuyPrice: 100, Balance: decimal.NewFromInt(3)}

	if got := p.ProfitRate(100.5); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("ProfitRate(100.5) = %v, want 0.5", got)
	}
	if got := p.ProfitRate(99.25); math.Abs(got+0.75) > 1e-9 {
		t.Errorf("ProfitRate(99.25) = %v, want -0.75", got)
	}
	if got := p.Cost(); got != 300 {
		t.Errorf("Cost() = %v, want 300", got)
	}
	if got := (&Position{}).ProfitRate(10); got != 0 {
		t.Errorf("zero average price should yield 0, got %v", got)
	}
}

func TestSplitMarket(t *testing.T) {
	quote, base, err := SplitMarket("KRW-BTC")
	if err != nil || quote != "KRW" || base != "BTC" {
		t.Errorf("SplitMarket(KRW-BTC) = %q, %q, %v", quote, base, err)
	}
	if MarketCode(quote, base) != "KRW-BTC" {
		t.Error("MarketCode should invert SplitMarket")
	}

	for _, bad := range []string{"", "KRW", "-BTC", "KRW-"} {
		if _, _, err := SplitMarket(bad); err != ErrInvalidMarket {
			t.Errorf("SplitMarket(%q) err = %v, want ErrInvalidMarket", bad, err)
		}
	}
}
