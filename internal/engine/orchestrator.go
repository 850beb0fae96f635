package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"upbit_bot/internal/domain"
	"upbit_bot/internal/infra"
	"upbit_bot/internal/strategy"
)

// LastTickKey is the app_configs key holding the end time of the last tick.
const LastTickKey = "last_tick_at"

// MarketData lists tradable markets.
type MarketData interface {
	TickersByQuote(ctx context.Context, quote string) ([]domain.Ticker, error)
}

// OrderSink places and cancels orders. It is the live gateway or the paper
// account.
type OrderSink interface {
	PlaceOrder(ctx context.Context, intent domain.OrderIntent) (*domain.Order, error)
	CancelOpenOrders(ctx context.Context, market string) ([]domain.CancelResult, error)
}

// Account lists held positions.
type Account interface {
	Accounts(ctx context.Context) ([]domain.Position, error)
}

// WarningList reports exchange investment warnings.
type WarningList interface {
	IsWarned(market string) bool
}

// StateStore keeps small runtime values between runs.
type StateStore interface {
	SaveTime(key string, t time.Time) error
}

// Watcher is told which markets the current tick trades.
type Watcher interface {
	Subscribe(markets []string) error
}

// Options are the discovery and sweep settings of one run.
type Options struct {
	QuoteCurrency    string
	ExcludedMarkets  []string
	MinTradeValue24h float64
	SweepHoldings    bool
}

// TickReport summarizes one tick.
type TickReport struct {
	Markets []string
	Swept   []string
	Ordered int
	Skipped int
	Failed  int
	Alerts  int
}

// Orchestrator runs one trading pass over the eligible markets. Markets are
// processed one at a time and each one is isolated from the others' failures.
type Orchestrator struct {
	market    MarketData
	sink      OrderSink
	notifier  domain.Notifier
	opts      Options
	buys      []strategy.Strategy
	sell      strategy.Strategy
	detectors []strategy.Detector
	account   Account
	warnings  WarningList
	state     StateStore
	watcher   Watcher
	metrics   *infra.Metrics
	clock     infra.Clock
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBuyStrategies sets the BUY strategies in priority order.
func WithBuyStrategies(s ...strategy.Strategy) Option {
	return func(o *Orchestrator) { o.buys = s }
}

// WithSellStrategy sets the SELL strategy.
func WithSellStrategy(s strategy.Strategy) Option {
	return func(o *Orchestrator) { o.sell = s }
}

// WithDetectors adds notify-only detectors.
func WithDetectors(d ...strategy.Detector) Option {
	return func(o *Orchestrator) { o.detectors = d }
}

// WithAccount enables the holdings sweep source.
func WithAccount(a Account) Option {
	return func(o *Orchestrator) { o.account = a }
}

// WithWarnings excludes warned markets from discovery.
func WithWarnings(w WarningList) Option {
	return func(o *Orchestrator) { o.warnings = w }
}

// WithStateStore records the last tick time.
func WithStateStore(s StateStore) Option {
	return func(o *Orchestrator) { o.state = s }
}

// WithWatcher forwards discovered markets, e.g. to the price stream.
func WithWatcher(w Watcher) Option {
	return func(o *Orchestrator) { o.watcher = w }
}

// WithOrchestratorMetrics records outcomes and orders.
func WithOrchestratorMetrics(m *infra.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithOrchestratorClock sets the time source.
func WithOrchestratorClock(c infra.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(market MarketData, sink OrderSink, notifier domain.Notifier, opts Options, options ...Option) *Orchestrator {
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	if opts.QuoteCurrency == "" {
		opts.QuoteCurrency = "KRW"
	}
	o := &Orchestrator{
		market:   market,
		sink:     sink,
		notifier: notifier,
		opts:     opts,
		clock:    infra.SystemClock{},
		logger:   slog.Default().With("module", "orchestrator"),
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Discover returns the eligible markets sorted by code.
func (o *Orchestrator) Discover(ctx context.Context) ([]string, error) {
	tickers, err := o.market.TickersByQuote(ctx, o.opts.QuoteCurrency)
	if err != nil {
		return nil, fmt.Errorf("discover markets: %w", err)
	}

	prefix := o.opts.QuoteCurrency + "-"
	markets := make([]string, 0, len(tickers))
	for _, t := range tickers {
		switch {
		case !strings.HasPrefix(t.Market, prefix):
		case o.isExcluded(t.Market):
		case o.warnings != nil && o.warnings.IsWarned(t.Market):
		case t.AccTradePrice24h < o.opts.MinTradeValue24h:
		default:
			markets = append(markets, t.Market)
		}
	}
	slices.Sort(markets)
	return markets, nil
}

// Tick runs one full pass. The returned error is a discovery failure; per
// market failures are counted in the report.
func (o *Orchestrator) Tick(ctx context.Context) (TickReport, error) {
	start := o.clock.Now()
	var report TickReport

	markets, err := o.Discover(ctx)
	if err != nil {
		o.fail("", "discover", err)
		return report, err
	}
	report.Markets = markets

	if o.watcher != nil {
		if err := o.watcher.Subscribe(markets); err != nil {
			o.logger.Warn("failed to update price subscription", slog.Any("error", err))
		}
	}

	for _, market := range markets {
		if ctx.Err() != nil {
			break
		}
		o.runMarket(ctx, market, true, &report)
	}

	if o.opts.SweepHoldings && ctx.Err() == nil {
		o.sweep(ctx, markets, &report)
	}

	end := o.clock.Now()
	if o.state != nil {
		if err := o.state.SaveTime(LastTickKey, end); err != nil {
			o.logger.Warn("failed to record tick time", slog.Any("error", err))
		}
	}
	o.metrics.RecordTick(end.Sub(start), len(markets))
	o.logger.Info("tick finished",
		slog.Int("markets", len(markets)),
		slog.Int("swept", len(report.Swept)),
		slog.Int("ordered", report.Ordered),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Duration("elapsed", end.Sub(start)),
	)
	return report, ctx.Err()
}

// sweep runs cancel and SELL on held markets that discovery left out.
func (o *Orchestrator) sweep(ctx context.Context, discovered []string, report *TickReport) {
	if o.account == nil {
		return
	}
	positions, err := o.account.Accounts(ctx)
	if err != nil {
		o.fail("", "accounts", err)
		return
	}

	for _, pos := range positions {
		if ctx.Err() != nil {
			return
		}
		if pos.UnitCurrency != o.opts.QuoteCurrency || !pos.IsHeld() {
			continue
		}
		if slices.Contains(discovered, pos.Market) || o.isExcluded(pos.Market) {
			continue
		}
		report.Swept = append(report.Swept, pos.Market)
		o.runMarket(ctx, pos.Market, false, report)
	}
}

// runMarket is the failure boundary of one market.
func (o *Orchestrator) runMarket(ctx context.Context, market string, buy bool, report *TickReport) {
	defer func() {
		if r := recover(); r != nil {
			report.Failed++
			o.logger.Error("market panic recovered",
				slog.String("market", market),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			o.metrics.RecordError("panic")
			o.notifier.Notify(fmt.Sprintf("❌ %s: internal error: %v", market, r))
		}
	}()

	results, err := o.sink.CancelOpenOrders(ctx, market)
	if err != nil {
		report.Failed++
		o.fail(market, "cancel", err)
		return
	}
	for _, r := range results {
		if r.Err != nil {
			report.Failed++
			o.fail(market, "cancel "+r.OrderID, r.Err)
			continue
		}
		o.logger.Info("order cancelled", slog.String("market", market), slog.String("uuid", r.OrderID))
	}

	if buy {
		for _, s := range o.buys {
			if o.evaluate(ctx, s, market, report) {
				break
			}
		}
	}

	if o.sell != nil {
		o.evaluate(ctx, o.sell, market, report)
	}

	if buy {
		for _, d := range o.detectors {
			alert, err := d.Detect(ctx, market)
			if err != nil {
				o.fail(market, d.Name(), err)
				continue
			}
			if alert != "" {
				report.Alerts++
				o.notifier.Notify(alert)
			}
		}
	}
}

// evaluate runs one strategy and dispatches its order. It reports whether
// an order was placed.
func (o *Orchestrator) evaluate(ctx context.Context, s strategy.Strategy, market string, report *TickReport) bool {
	out := s.Evaluate(ctx, market)
	o.metrics.RecordOutcome(s.Name(), out.Kind.String())

	switch out.Kind {
	case strategy.OutcomeOrdered:
		if out.Intent == nil {
			report.Failed++
			o.fail(market, s.Name(), fmt.Errorf("%s returned an order without intent", s.Name()))
			return false
		}
		return o.dispatch(ctx, s.Name(), *out.Intent, report)
	case strategy.OutcomeFailed:
		report.Failed++
		o.fail(market, s.Name(), out.Err)
	default:
		report.Skipped++
		o.logger.Debug("skipped", slog.String("market", market), slog.String("strategy", s.Name()), slog.String("reason", out.Reason))
	}
	return false
}

func (o *Orchestrator) dispatch(ctx context.Context, name string, intent domain.OrderIntent, report *TickReport) bool {
	order, err := o.sink.PlaceOrder(ctx, intent)
	if err != nil {
		report.Failed++
		o.fail(intent.Market, name+" order", err)
		return false
	}

	report.Ordered++
	o.metrics.RecordOrder(string(intent.Side))
	o.logger.Info("order dispatched",
		slog.String("strategy", name),
		slog.String("market", intent.Market),
		slog.String("side", string(intent.Side)),
		slog.String("uuid", order.ID),
	)
	if intent.Note != "" {
		o.notifier.Notify(intent.Note)
	}
	return true
}

// fail logs err and notifies it unless the gateway already did.
func (o *Orchestrator) fail(market, stage string, err error) {
	o.logger.Warn("market step failed",
		slog.String("market", market),
		slog.String("stage", stage),
		slog.String("kind", domain.ErrorKind(err)),
		slog.Any("error", err),
	)
	if domain.IsGatewayError(err) {
		return
	}
	o.metrics.RecordError(domain.ErrorKind(err))
	if market == "" {
		o.notifier.Notify(fmt.Sprintf("❌ %s failed: %v", stage, err))
		return
	}
	o.notifier.Notify(fmt.Sprintf("❌ %s %s failed: %v", market, stage, err))
}

func (o *Orchestrator) isExcluded(market string) bool {
	for _, m := range o.opts.ExcludedMarkets {
		if strings.EqualFold(m, market) {
			return true
		}
	}
	return false
}
