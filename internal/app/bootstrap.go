package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"upbit_bot/internal/domain"
	"upbit_bot/internal/engine"
	"upbit_bot/internal/execution"
	"upbit_bot/internal/infra"
	"upbit_bot/internal/infra/storage"
	"upbit_bot/internal/infra/telegram"
	"upbit_bot/internal/infra/upbit"
	"upbit_bot/internal/service"
	"upbit_bot/internal/strategy"

	"golang.org/x/sync/errgroup"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	configPath string

	Config       *infra.Config
	Metrics      *infra.Metrics
	Storage      *storage.Storage
	Notifier     domain.Notifier
	Telegram     *telegram.Notifier
	Limiter      *infra.Limiter
	Client       *upbit.Client
	Stream       *upbit.Stream
	Catalog      *service.Catalog
	Paper        *execution.Paper
	Orchestrator *engine.Orchestrator
	Scheduler    *engine.Scheduler
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{configPath: configPath}
}

// Initialize loads configuration and wires every component. Nothing touches
// the network until Run; the telegram bot also connects there.
func (b *Bootstrap) Initialize() error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(b.configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("🚀 Bootstrapping upbit bot...", slog.Bool("dry_run", cfg.Trading.DryRun))

	// 3. Metrics
	b.Metrics = infra.NewMetrics()

	// 4. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	if last, ok, err := store.LoadTime(engine.LastTickKey); err == nil && ok {
		slog.Info("✅ Database initialized", slog.Time("last_tick_at", last))
	} else {
		slog.Info("✅ Database initialized")
	}

	// 5. Notifier
	if cfg.Telegram.Enabled {
		b.Telegram = telegram.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.QueueSize, b.Metrics)
		b.Notifier = b.Telegram
	} else {
		b.Notifier = logNotifier()
	}

	// 6. Gateway
	b.Limiter = infra.NewLimiter(cfg.RequestInterval(), nil)
	b.Limiter.Observe(b.Metrics.RecordLimiterWait)

	opts := []upbit.Option{upbit.WithMetrics(b.Metrics)}
	if cfg.Stream.Enabled {
		b.Stream = upbit.NewStream(cfg.API.Upbit.WSURL, nil, b.Metrics)
		opts = append(opts, upbit.WithStream(b.Stream, time.Duration(cfg.Stream.MaxAgeSec)*time.Second))
	}
	b.Client = upbit.NewClient(cfg, b.Limiter, b.Notifier, opts...)

	b.Catalog = service.NewCatalog(b.Client, store, time.Duration(cfg.Catalog.RefreshMin)*time.Minute, nil)

	// 7. Strategies and execution
	stratCfg, err := StrategyConfig(cfg.Trading)
	if err != nil {
		return err
	}

	var (
		feed    strategy.Feed    = b.Client
		sink    engine.OrderSink = b.Client
		account engine.Account   = b.Client
	)
	if cfg.Trading.DryRun {
		b.Paper = execution.NewPaper(cfg.Trading.QuoteCurrency, cfg.Trading.PaperBalance, cfg.Trading.FeeRate)
		feed, sink, account = b.Paper.Feed(b.Client), b.Paper, b.Paper
		slog.Warn("📝 Dry run: orders are filled on a paper account", slog.String("balance", cfg.Trading.PaperBalance.String()))
	}

	buys, err := buyStrategies(cfg.Trading.BuyStrategies, feed, stratCfg, cfg.Trading.BandRSI.Preset)
	if err != nil {
		return err
	}

	orchOpts := []engine.Option{
		engine.WithBuyStrategies(buys...),
		engine.WithSellStrategy(strategy.NewTakeProfitSell(feed, stratCfg)),
		engine.WithAccount(account),
		engine.WithWarnings(b.Catalog),
		engine.WithStateStore(store),
		engine.WithOrchestratorMetrics(b.Metrics),
	}
	if cfg.Trading.VolumeSpike.Enabled {
		orchOpts = append(orchOpts, engine.WithDetectors(strategy.NewVolumeSpike(feed, stratCfg.Spike)))
	}
	if b.Stream != nil {
		orchOpts = append(orchOpts, engine.WithWatcher(b.Stream))
	}

	b.Orchestrator = engine.NewOrchestrator(b.Client, sink, b.Notifier, engine.Options{
		QuoteCurrency:    cfg.Trading.QuoteCurrency,
		ExcludedMarkets:  cfg.Trading.ExcludedMarkets,
		MinTradeValue24h: cfg.Trading.MinTradeValue24h.InexactFloat64(),
		SweepHoldings:    cfg.Trading.SweepHoldings,
	}, orchOpts...)

	b.Scheduler = engine.NewScheduler(cfg.Interval(), nil, func(ctx context.Context) {
		if _, err := b.Orchestrator.Tick(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("tick aborted", slog.Any("error", err))
		}
	}, cfg.Trading.RunOnStart, b.Metrics)

	slog.Info("✅ Components wired",
		slog.Any("buy_strategies", cfg.Trading.BuyStrategies),
		slog.String("preset", cfg.Trading.BandRSI.Preset),
		slog.Duration("interval", cfg.Interval()),
	)
	return nil
}

// Run starts every background component and blocks until ctx is done.
func (b *Bootstrap) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if b.Telegram != nil {
		g.Go(func() error { return b.Telegram.Run(ctx) })
	}
	if b.Stream != nil {
		g.Go(func() error { return b.Stream.Run(ctx) })
	}

	g.Go(func() error {
		if err := b.Catalog.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		b.Catalog.Stop()
		return nil
	})

	if b.Config.Metrics.Enabled {
		g.Go(func() error { return serveMetrics(ctx, b.Config.Metrics.Addr, b.Metrics) })
	}

	g.Go(func() error { return b.Scheduler.Run(ctx) })

	b.Notifier.Notify(fmt.Sprintf("🤖 %s started (dry_run=%v)", b.Config.App.Name, b.Config.Trading.DryRun))
	slog.Info("✨ upbit bot fully operational. Press Ctrl+C to exit.")

	return g.Wait()
}

// Close releases resources held after Run returns.
func (b *Bootstrap) Close() error {
	if b.Storage != nil {
		return b.Storage.Close()
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, m *infra.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("📊 Metrics server started", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func logNotifier() domain.Notifier {
	logger := slog.Default().With("module", "notifier")
	return domain.NotifierFunc(func(message string) {
		logger.Info("notification", slog.String("message", message))
	})
}
