package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"upbit_bot/internal/domain"
	"upbit_bot/internal/infra"
)

// MarketSource lists markets with their warning flags.
type MarketSource interface {
	Markets(ctx context.Context) ([]domain.MarketInfo, error)
}

// MarketStore persists the catalog between runs.
type MarketStore interface {
	ReplaceMarkets(markets []domain.MarketInfo) error
	WarnedMarkets() (map[string]bool, error)
}

// Catalog keeps the set of markets under an exchange investment warning.
// It is refreshed on its own period, off the trading tick.
type Catalog struct {
	source   MarketSource
	store    MarketStore
	clock    infra.Clock
	interval time.Duration
	logger   *slog.Logger

	mu          sync.RWMutex
	warned      map[string]bool
	refreshedAt time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCatalog creates a catalog. store may be nil.
func NewCatalog(source MarketSource, store MarketStore, interval time.Duration, clock infra.Clock) *Catalog {
	if clock == nil {
		clock = infra.SystemClock{}
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Catalog{
		source:   source,
		store:    store,
		clock:    clock,
		interval: interval,
		logger:   slog.Default().With("module", "catalog"),
		warned:   make(map[string]bool),
	}
}

// Start loads the persisted catalog, refreshes once and then polls until
// Stop is called or ctx ends.
func (c *Catalog) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	if c.store != nil {
		if warned, err := c.store.WarnedMarkets(); err != nil {
			c.logger.Warn("failed to load stored catalog", slog.Any("error", err))
		} else {
			c.setWarned(warned)
		}
	}

	// Fetch immediately on start
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("initial catalog refresh failed", slog.Any("error", err))
	}

	tick, stop := c.clock.NewTicker(c.interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer stop()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("catalog polling panic recovered", slog.Any("panic", r))
			}
		}()

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("catalog polling stopped")
				return
			case <-tick:
				if err := c.Refresh(ctx); err != nil {
					c.logger.Warn("catalog refresh failed", slog.Any("error", err))
				}
			}
		}
	}()

	return nil
}

// Stop stops the polling
func (c *Catalog) Stop() {
	if c.cancel != nil {
		c.cancel()
		c.wg.Wait()
	}
}

// Refresh fetches the market list and replaces the warned set.
func (c *Catalog) Refresh(ctx context.Context) error {
	markets, err := c.source.Markets(ctx)
	if err != nil {
		return err
	}

	warned := make(map[string]bool)
	for _, m := range markets {
		if m.Warning {
			warned[m.Market] = true
		}
	}

	if c.store != nil {
		if err := c.store.ReplaceMarkets(markets); err != nil {
			return fmt.Errorf("store catalog: %w", err)
		}
	}

	c.mu.Lock()
	changed := !maps.Equal(c.warned, warned)
	c.warned = warned
	c.refreshedAt = c.clock.Now()
	c.mu.Unlock()

	if changed {
		c.logger.Info("catalog updated", slog.Int("markets", len(markets)), slog.Int("warned", len(warned)))
	}
	return nil
}

// IsWarned reports whether market carries an investment warning.
func (c *Catalog) IsWarned(market string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warned[market]
}

// RefreshedAt returns the time of the last successful refresh.
func (c *Catalog) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

func (c *Catalog) setWarned(warned map[string]bool) {
	c.mu.Lock()
	c.warned = warned
	c.mu.Unlock()
}
