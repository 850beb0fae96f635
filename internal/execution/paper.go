package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"upbit_bot/internal/domain"
	"upbit_bot/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds is returned when the paper account cannot pay for a BUY.
	ErrInsufficientFunds = errors.New("paper: insufficient funds")
	// ErrInsufficientVolume is returned when a SELL exceeds the held volume.
	ErrInsufficientVolume = errors.New("paper: insufficient volume")
)

// Fill is one simulated execution.
type Fill struct {
	OrderID string
	Market  string
	Side    domain.Side
	Price   float64
	Volume  decimal.Decimal
	Fee     decimal.Decimal
	At      time.Time
}

type holding struct {
	volume decimal.Decimal
	cost   decimal.Decimal // quote spent, fees excluded
}

// Paper fills every limit order immediately at its limit price against an
// in-memory account. Nothing reaches the exchange and no order stays open.
type Paper struct {
	mu       sync.Mutex
	quote    string
	feeRate  decimal.Decimal
	cash     decimal.Decimal
	holdings map[string]*holding
	fills    []Fill
	now      func() time.Time
	logger   *slog.Logger
}

// NewPaper creates a paper account holding balance of quote currency.
func NewPaper(quote string, balance decimal.Decimal, feeRate float64) *Paper {
	return &Paper{
		quote:    quote,
		feeRate:  decimal.NewFromFloat(feeRate),
		cash:     balance,
		holdings: make(map[string]*holding),
		now:      time.Now,
		logger:   slog.Default().With("module", "paper"),
	}
}

// PlaceOrder simulates a limit order fill.
func (p *Paper) PlaceOrder(_ context.Context, intent domain.OrderIntent) (*domain.Order, error) {
	if !intent.Volume.IsPositive() || intent.Price <= 0 {
		return nil, fmt.Errorf("paper: invalid order %s %s@%v", intent.Market, intent.Volume, intent.Price)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	value := intent.Value()
	fee := value.Mul(p.feeRate)

	switch intent.Side {
	case domain.SideBuy:
		if total := value.Add(fee); p.cash.LessThan(total) {
			return nil, fmt.Errorf("%w: need %s %s, have %s", ErrInsufficientFunds, total.StringFixed(0), p.quote, p.cash.StringFixed(0))
		}
		p.cash = p.cash.Sub(value).Sub(fee)
		h := p.holdings[intent.Market]
		if h == nil {
			h = &holding{}
			p.holdings[intent.Market] = h
		}
		h.volume = h.volume.Add(intent.Volume)
		h.cost = h.cost.Add(value)

	case domain.SideSell:
		h := p.holdings[intent.Market]
		if h == nil || h.volume.LessThan(intent.Volume) {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientVolume, intent.Market)
		}
		// cost basis leaves at the average price
		avg := h.cost.Div(h.volume)
		h.cost = h.cost.Sub(avg.Mul(intent.Volume))
		h.volume = h.volume.Sub(intent.Volume)
		if h.volume.IsZero() {
			delete(p.holdings, intent.Market)
		}
		p.cash = p.cash.Add(value).Sub(fee)

	default:
		return nil, fmt.Errorf("paper: unknown side %q", intent.Side)
	}

	id := uuid.NewString()
	at := p.now()
	p.fills = append(p.fills, Fill{
		OrderID: id,
		Market:  intent.Market,
		Side:    intent.Side,
		Price:   intent.Price,
		Volume:  intent.Volume,
		Fee:     fee,
		At:      at,
	})

	p.logger.Info("paper order filled",
		"uuid", id, "market", intent.Market, "side", intent.Side,
		"price", intent.Price, "volume", intent.Volume.String(), "cash", p.cash.StringFixed(0))

	return &domain.Order{
		ID:        id,
		Market:    intent.Market,
		Side:      intent.Side,
		Price:     intent.Price,
		Volume:    intent.Volume.InexactFloat64(),
		State:     domain.OrderStateDone,
		CreatedAt: at,
	}, nil
}

// CancelOpenOrders has nothing to cancel: paper orders fill on placement.
func (p *Paper) CancelOpenOrders(context.Context, string) ([]domain.CancelResult, error) {
	return nil, nil
}

// Position returns the simulated holding of market, or nil.
func (p *Paper) Position(_ context.Context, market string) (*domain.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.holdings[market]
	if !ok {
		return nil, nil
	}
	pos := p.toPosition(market, h)
	return &pos, nil
}

// Accounts lists every simulated holding ordered by market.
func (p *Paper) Accounts(context.Context) ([]domain.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Position, 0, len(p.holdings))
	for market, h := range p.holdings {
		out = append(out, p.toPosition(market, h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Market < out[j].Market })
	return out, nil
}

// Cash returns the free quote balance.
func (p *Paper) Cash() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// Fills returns a copy of every simulated execution.
func (p *Paper) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Fill(nil), p.fills...)
}

func (p *Paper) toPosition(market string, h *holding) domain.Position {
	_, base, _ := domain.SplitMarket(market)
	return domain.Position{
		Market:       market,
		Currency:     base,
		UnitCurrency: p.quote,
		Balance:      h.volume,
		AvgBuyPrice:  h.cost.Div(h.volume).InexactFloat64(),
	}
}

// Feed serves market data from upstream and positions from the paper account.
func (p *Paper) Feed(upstream strategy.Feed) strategy.Feed {
	return paperFeed{Feed: upstream, paper: p}
}

type paperFeed struct {
	strategy.Feed
	paper *Paper
}

func (f paperFeed) Position(ctx context.Context, market string) (*domain.Position, error) {
	return f.paper.Position(ctx, market)
}
