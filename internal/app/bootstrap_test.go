package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"upbit_bot/internal/domain"
	"upbit_bot/internal/infra"
	"upbit_bot/internal/strategy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradingConfig() infra.TradingConfig {
	t := infra.TradingConfig{
		AmountPerTrade:      decimal.NewFromInt(100000),
		TargetProfitPercent: 0.5,
		TargetStopPercent:   -0.75,
		FeeRate:             0.0005,
		MinOrderValue:       decimal.NewFromInt(5000),
	}
	t.BandRSI.Preset = "band_rsi"
	t.SMACross.Short = 20
	t.SMACross.Long = 50
	t.VolumeSpike.Ratio = 300
	return t
}

func TestStrategyConfig_Preset(t *testing.T) {
	cfg, err := StrategyConfig(tradingConfig())
	require.NoError(t, err)

	assert.Equal(t, []int{20, 60}, cfg.Band.Periods)
	assert.Equal(t, strategy.SizingFixedAmount, cfg.Band.Sizing)
	assert.Equal(t, 20, cfg.Cross.Short)
	assert.Equal(t, 50, cfg.Cross.Long)
	assert.Equal(t, 300.0, cfg.Spike.Ratio)
	assert.True(t, cfg.AmountPerTrade.Equal(decimal.NewFromInt(100000)))
}

func TestStrategyConfig_Overrides(t *testing.T) {
	tc := tradingConfig()
	offset := 0.001
	latest := true
	ceiling := 30.0
	tc.BandRSI.Preset = "deep_detect"
	tc.BandRSI.RSICeiling = &ceiling
	tc.BandRSI.Offset = &offset
	tc.BandRSI.ExcludeLatest = &latest

	cfg, err := StrategyConfig(tc)
	require.NoError(t, err)

	assert.Equal(t, []int{100}, cfg.Band.Periods)
	assert.Equal(t, 15, cfg.Band.CandleUnit)
	assert.Equal(t, 30.0, cfg.Band.RSICeiling)
	assert.Equal(t, 0.001, cfg.Band.Offset)
	assert.True(t, cfg.Band.ExcludeLatest)
	assert.Equal(t, strategy.SizingPositionDoubling, cfg.Band.Sizing, "preset sizing is kept")

	// the preset table itself is untouched
	again, err := strategy.Preset("deep_detect")
	require.NoError(t, err)
	assert.Equal(t, 25.0, again.RSICeiling)
}

func TestStrategyConfig_ExplicitZeroIsApplied(t *testing.T) {
	tc := tradingConfig()
	zero := 0.0
	tc.BandRSI.Multiplier = &zero
	tc.BandRSI.RSICeiling = &zero

	cfg, err := StrategyConfig(tc)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Band.Multiplier)
	assert.Equal(t, 0.0, cfg.Band.RSICeiling)

	// a zero that cannot be valid is reported, not dropped
	tc = tradingConfig()
	unit := 0
	tc.BandRSI.CandleUnit = &unit
	_, err = StrategyConfig(tc)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "trading.band_rsi", cfgErr.Field)
}

func TestStrategyConfig_Invalid(t *testing.T) {
	tc := tradingConfig()
	tc.BandRSI.Preset = "moon"
	_, err := StrategyConfig(tc)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "trading.band_rsi.preset", cfgErr.Field)

	tc = tradingConfig()
	count := 30 // shorter than the 60 period band
	tc.BandRSI.CandleCount = &count
	_, err = StrategyConfig(tc)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "trading.band_rsi", cfgErr.Field)

	tc = tradingConfig()
	tc.BandRSI.Sizing = "martingale"
	_, err = StrategyConfig(tc)
	assert.Error(t, err)
}

func TestBuyStrategies_Order(t *testing.T) {
	cfg, err := StrategyConfig(tradingConfig())
	require.NoError(t, err)

	buys, err := buyStrategies([]string{"sma_cross", "band_rsi"}, nil, cfg, "band_rsi")
	require.NoError(t, err)
	require.Len(t, buys, 2)
	assert.Equal(t, "sma_cross", buys[0].Name())
	assert.Equal(t, "band_rsi", buys[1].Name())

	_, err = buyStrategies([]string{"hodl"}, nil, cfg, "band_rsi")
	assert.Error(t, err)
}

func TestBootstrap_InitializeDryRun(t *testing.T) {
	dir := t.TempDir()
	yaml := strings.NewReplacer("{dir}", filepath.ToSlash(dir)).Replace(`
app:
  name: test-bot
trading:
  dry_run: true
  paper_balance: "500000"
  target_profit_percent: 0.5
  target_stop_percent: -0.75
  buy_strategies: [band_rsi, sma_cross]
  volume_spike:
    enabled: true
stream:
  enabled: true
storage:
  path: {dir}/data/bot.db
logging:
  dir: {dir}/logs
  level: debug
`)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	t.Setenv("UPBIT_ACCESS_KEY", "")
	t.Setenv("UPBIT_SECRET_KEY", "")

	b := NewBootstrap(path)
	require.NoError(t, b.Initialize())
	t.Cleanup(func() { b.Close() })

	require.NotNil(t, b.Paper)
	assert.True(t, b.Paper.Cash().Equal(decimal.NewFromInt(500000)))
	assert.NotNil(t, b.Stream)
	assert.Nil(t, b.Telegram)
	assert.NotNil(t, b.Orchestrator)
	assert.NotNil(t, b.Scheduler)
	assert.FileExists(t, filepath.Join(dir, "data", "bot.db"))
}

func TestBootstrap_TelegramConnectsInRun(t *testing.T) {
	dir := t.TempDir()
	yaml := strings.NewReplacer("{dir}", filepath.ToSlash(dir)).Replace(`
trading:
  dry_run: true
telegram:
  enabled: true
  token: "123:not-a-real-token"
  chat_id: 42
storage:
  path: {dir}/bot.db
logging:
  dir: {dir}/logs
`)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	// an invalid token only fails once Run dials telegram
	b := NewBootstrap(path)
	require.NoError(t, b.Initialize())
	t.Cleanup(func() { b.Close() })

	require.NotNil(t, b.Telegram)
	assert.Same(t, b.Telegram, b.Notifier)
}

func TestBootstrap_MissingConfig(t *testing.T) {
	b := NewBootstrap(filepath.Join(t.TempDir(), "nope.yaml"))
	err := b.Initialize()
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "path", cfgErr.Field)
}
