package domain

import (
	"strings"
	"time"
)

// Candle is one OHLCV bucket. Sequences are kept oldest-first.
type Candle struct {
	Market   string
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Ticker is the last-trade snapshot of a market.
type Ticker struct {
	Market           string    `json:"market"`
	TradePrice       float64   `json:"trade_price"`
	AccTradePrice24h float64   `json:"acc_trade_price_24h"`
	Timestamp        time.Time `json:"timestamp"`
}

// Closes extracts closing prices in the same order as candles.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// MarketCode joins a quote and base currency into an Upbit market code ("KRW-BTC").
func MarketCode(quote, base string) string {
	return quote + "-" + base
}

// SplitMarket splits "KRW-BTC" into ("KRW", "BTC").
func SplitMarket(market string) (quote, base string, err error) {
	quote, base, ok := strings.Cut(market, "-")
	if !ok || quote == "" || base == "" {
		return "", "", ErrInvalidMarket
	}
	return quote, base, nil
}
