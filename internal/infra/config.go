package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"upbit_bot/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is sent with every REST call
	DefaultUserAgent = "upbit-bot/1.0"

	DefaultRestURL = "https://api.upbit.com"
	DefaultWSURL   = "wss://api.upbit.com/websocket/v1"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		Upbit struct {
			RestURL           string `yaml:"rest_url"`
			WSURL             string `yaml:"ws_url"`
			AccessKey         string `yaml:"access_key"`
			SecretKey         string `yaml:"secret_key"`
			TimeoutSec        int    `yaml:"timeout_sec"`
			RequestIntervalMS int    `yaml:"request_interval_ms"`
		} `yaml:"upbit"`
	} `yaml:"api"`

	Telegram struct {
		Enabled   bool   `yaml:"enabled"`
		Token     string `yaml:"token"`
		ChatID    int64  `yaml:"chat_id"`
		QueueSize int    `yaml:"queue_size"`
	} `yaml:"telegram"`

	Trading TradingConfig `yaml:"trading"`

	Stream struct {
		Enabled   bool `yaml:"enabled"`
		MaxAgeSec int  `yaml:"max_age_sec"`
	} `yaml:"stream"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Catalog struct {
		RefreshMin int `yaml:"refresh_min"`
	} `yaml:"catalog"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// TradingConfig holds the per-run trading thresholds.
type TradingConfig struct {
	QuoteCurrency    string          `yaml:"quote_currency"`
	IntervalSec      int             `yaml:"interval_sec"`
	RunOnStart       bool            `yaml:"run_on_start"`
	DryRun           bool            `yaml:"dry_run"`
	PaperBalance     decimal.Decimal `yaml:"paper_balance"`
	SweepHoldings    bool            `yaml:"sweep_holdings"`
	ExcludedMarkets  []string        `yaml:"excluded_markets"`
	MinTradeValue24h decimal.Decimal `yaml:"min_trade_value_24h"`

	AmountPerTrade      decimal.Decimal `yaml:"amount_per_trade"`
	TargetProfitPercent float64         `yaml:"target_profit_percent"`
	TargetStopPercent   float64         `yaml:"target_stop_percent"`
	FeeRate             float64         `yaml:"fee_rate"`
	MinOrderValue       decimal.Decimal `yaml:"min_order_value"`
	MinPositionValue    decimal.Decimal `yaml:"min_position_value"`

	BuyStrategies []string      `yaml:"buy_strategies"`
	BandRSI       BandRSIConfig `yaml:"band_rsi"`
	SMACross      struct {
		Short int `yaml:"short"`
		Long  int `yaml:"long"`
	} `yaml:"sma_cross"`
	VolumeSpike struct {
		Enabled bool    `yaml:"enabled"`
		Ratio   float64 `yaml:"ratio"`
	} `yaml:"volume_spike"`
}

// BandRSIConfig selects a preset and optionally overrides its fields.
// Omitted (nil or empty) fields keep the preset's value; an explicit zero
// is applied.
type BandRSIConfig struct {
	Preset        string   `yaml:"preset"`
	Periods       []int    `yaml:"periods"`
	Multiplier    *float64 `yaml:"multiplier"`
	Offset        *float64 `yaml:"offset"`
	CandleUnit    *int     `yaml:"candle_unit"`
	CandleCount   *int     `yaml:"candle_count"`
	ExcludeLatest *bool    `yaml:"exclude_latest"`
	RSIPeriod     *int     `yaml:"rsi_period"`
	RSICeiling    *float64 `yaml:"rsi_ceiling"`
	Sizing        string   `yaml:"sizing"`
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.ConfigError{Field: "path", Err: fmt.Errorf("%s: %w", path, err)}
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes yaml, applies env overrides and defaults, then validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &domain.ConfigError{Field: "yaml", Err: err}
	}

	// 보안 우선 - 환경 변수 오버라이드 지원
	if err := overrideWithEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "upbit-bot"
	}
	if c.API.Upbit.RestURL == "" {
		c.API.Upbit.RestURL = DefaultRestURL
	}
	if c.API.Upbit.WSURL == "" {
		c.API.Upbit.WSURL = DefaultWSURL
	}
	if c.API.Upbit.TimeoutSec == 0 {
		c.API.Upbit.TimeoutSec = 10
	}
	if c.API.Upbit.RequestIntervalMS == 0 {
		c.API.Upbit.RequestIntervalMS = int(DefaultRequestInterval / time.Millisecond)
	}
	if c.Telegram.QueueSize == 0 {
		c.Telegram.QueueSize = 100
	}

	t := &c.Trading
	if t.QuoteCurrency == "" {
		t.QuoteCurrency = "KRW"
	}
	if t.IntervalSec == 0 {
		t.IntervalSec = 60
	}
	if t.PaperBalance.IsZero() {
		t.PaperBalance = decimal.NewFromInt(1_000_000)
	}
	if t.MinTradeValue24h.IsZero() {
		t.MinTradeValue24h = decimal.New(1, 10)
	}
	if t.AmountPerTrade.IsZero() {
		t.AmountPerTrade = decimal.NewFromInt(100000)
	}
	if t.FeeRate == 0 {
		t.FeeRate = 0.0005
	}
	if t.MinOrderValue.IsZero() {
		t.MinOrderValue = decimal.NewFromInt(5000)
	}
	if len(t.BuyStrategies) == 0 {
		t.BuyStrategies = []string{"band_rsi"}
	}
	if t.BandRSI.Preset == "" {
		t.BandRSI.Preset = "band_rsi"
	}
	if t.SMACross.Short == 0 {
		t.SMACross.Short = 20
	}
	if t.SMACross.Long == 0 {
		t.SMACross.Long = 50
	}
	if t.VolumeSpike.Ratio == 0 {
		t.VolumeSpike.Ratio = 300
	}

	if c.Stream.MaxAgeSec == 0 {
		c.Stream.MaxAgeSec = 5
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/upbit_bot.db"
	}
	if c.Catalog.RefreshMin == 0 {
		c.Catalog.RefreshMin = 60
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = "localhost:9100"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	// Upbit
	if !hasPrefix(c.API.Upbit.RestURL, "http://") && !hasPrefix(c.API.Upbit.RestURL, "https://") {
		return configErr("api.upbit.rest_url", "invalid REST URL: %s", c.API.Upbit.RestURL)
	}
	if c.Stream.Enabled && !hasPrefix(c.API.Upbit.WSURL, "ws://") && !hasPrefix(c.API.Upbit.WSURL, "wss://") {
		return configErr("api.upbit.ws_url", "invalid WS URL: %s", c.API.Upbit.WSURL)
	}
	if !c.Trading.DryRun {
		if c.API.Upbit.AccessKey == "" {
			return &domain.ConfigError{Field: "api.upbit.access_key", Err: domain.ErrMissingCredentials}
		}
		if c.API.Upbit.SecretKey == "" {
			return &domain.ConfigError{Field: "api.upbit.secret_key", Err: domain.ErrMissingCredentials}
		}
	}
	if c.API.Upbit.TimeoutSec < 0 || c.API.Upbit.RequestIntervalMS < 0 {
		return configErr("api.upbit", "timeout and request interval must not be negative")
	}

	// Telegram
	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			return configErr("telegram.token", "token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return configErr("telegram.chat_id", "chat id is required when telegram is enabled")
		}
	}

	// Trading
	t := c.Trading
	if t.IntervalSec <= 0 {
		return configErr("trading.interval_sec", "interval must be positive")
	}
	if !t.AmountPerTrade.IsPositive() {
		return configErr("trading.amount_per_trade", "amount must be positive")
	}
	if t.TargetProfitPercent <= t.TargetStopPercent {
		return configErr("trading.target_profit_percent", "take-profit (%v) must be above stop-loss (%v)",
			t.TargetProfitPercent, t.TargetStopPercent)
	}
	if t.FeeRate < 0 || t.FeeRate >= 1 {
		return configErr("trading.fee_rate", "fee rate must be in [0, 1)")
	}
	if t.MinTradeValue24h.IsNegative() {
		return configErr("trading.min_trade_value_24h", "must not be negative")
	}
	for _, m := range t.ExcludedMarkets {
		if _, _, err := domain.SplitMarket(m); err != nil {
			return &domain.ConfigError{Field: "trading.excluded_markets", Err: fmt.Errorf("%q: %w", m, err)}
		}
	}
	for _, name := range t.BuyStrategies {
		switch name {
		case "band_rsi", "sma_cross":
		default:
			return configErr("trading.buy_strategies", "unknown strategy %q", name)
		}
	}
	if t.SMACross.Short >= t.SMACross.Long {
		return configErr("trading.sma_cross", "short period must be less than long period")
	}
	if t.VolumeSpike.Ratio <= 1 {
		return configErr("trading.volume_spike.ratio", "ratio must be greater than 1")
	}

	if c.Stream.MaxAgeSec < 0 {
		return configErr("stream.max_age_sec", "must not be negative")
	}

	return nil
}

// Interval returns the tick period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Trading.IntervalSec) * time.Second
}

// RequestInterval returns the minimum spacing between REST calls.
func (c *Config) RequestInterval() time.Duration {
	return time.Duration(c.API.Upbit.RequestIntervalMS) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.Upbit.TimeoutSec) * time.Second
}

// IsExcluded reports whether market is on the exclusion list.
func (c *Config) IsExcluded(market string) bool {
	for _, m := range c.Trading.ExcludedMarkets {
		if strings.EqualFold(m, market) {
			return true
		}
	}
	return false
}

func configErr(field, format string, args ...any) error {
	return &domain.ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

func hasPrefix(s, prefix string) bool {
	return strings.HasPrefix(s, prefix)
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) error {
	if key := os.Getenv("UPBIT_ACCESS_KEY"); key != "" {
		cfg.API.Upbit.AccessKey = key
	}
	if secret := os.Getenv("UPBIT_SECRET_KEY"); secret != "" {
		cfg.API.Upbit.SecretKey = secret
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		id, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return &domain.ConfigError{Field: "TELEGRAM_CHAT_ID", Err: err}
		}
		cfg.Telegram.ChatID = id
	}
	return nil
}
