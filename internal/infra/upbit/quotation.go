package upbit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"upbit_bot/internal/domain"
)

const (
	// MaxCandleCount is the largest page the candle endpoint returns.
	MaxCandleCount = 200

	candleTimeLayout = "2006-01-02T15:04:05"
	candleToLayout   = "2006-01-02 15:04:05"
)

var candleUnits = []int{1, 3, 5, 10, 15, 30, 60, 240}

// Markets lists every market with its warning flag.
func (c *Client) Markets(ctx context.Context) ([]domain.MarketInfo, error) {
	var rows []marketResponse
	params := url.Values{"is_details": {"true"}}
	if err := c.doRequest(ctx, http.MethodGet, "/v1/market/all", params, false, &rows); err != nil {
		return nil, err
	}

	now := c.now()
	out := make([]domain.MarketInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain(now))
	}
	return out, nil
}

// Tickers returns snapshots for the given markets.
func (c *Client) Tickers(ctx context.Context, markets ...string) ([]domain.Ticker, error) {
	if len(markets) == 0 {
		return nil, nil
	}
	var rows []tickerResponse
	params := url.Values{"markets": {strings.Join(markets, ",")}}
	if err := c.doRequest(ctx, http.MethodGet, "/v1/ticker", params, false, &rows); err != nil {
		return nil, err
	}
	return toTickers(rows), nil
}

// TickersByQuote returns snapshots for every market quoted in currency.
func (c *Client) TickersByQuote(ctx context.Context, quote string) ([]domain.Ticker, error) {
	var rows []tickerResponse
	params := url.Values{"quote_currencies": {quote}}
	if err := c.doRequest(ctx, http.MethodGet, "/v1/ticker/all", params, false, &rows); err != nil {
		return nil, err
	}
	return toTickers(rows), nil
}

// MinuteCandles returns up to count candles of unit minutes ending at to
// (zero means now), oldest-first.
func (c *Client) MinuteCandles(ctx context.Context, market string, unit, count int, to time.Time) ([]domain.Candle, error) {
	op := fmt.Sprintf("GET /v1/candles/minutes/%d", unit)
	if !slices.Contains(candleUnits, unit) {
		return nil, c.fail(ctx, op, &domain.RequestConstructionError{
			Op: op, Err: fmt.Errorf("unsupported candle unit %d", unit),
		})
	}
	if count < 1 || count > MaxCandleCount {
		return nil, c.fail(ctx, op, &domain.RequestConstructionError{
			Op: op, Err: fmt.Errorf("candle count %d out of range [1, %d]", count, MaxCandleCount),
		})
	}
	if to.IsZero() {
		to = c.now()
	}

	params := url.Values{
		"market": {market},
		"to":     {to.UTC().Format(candleToLayout)},
		"count":  {strconv.Itoa(count)},
	}
	var rows []candleResponse
	if err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/candles/minutes/%d", unit), params, false, &rows); err != nil {
		return nil, err
	}

	// newest-first on the wire
	out := make([]domain.Candle, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.toDomain()
	}
	return out, nil
}

// Candles implements strategy.Feed.
func (c *Client) Candles(ctx context.Context, market string, unit, count int) ([]domain.Candle, error) {
	return c.MinuteCandles(ctx, market, unit, count, time.Time{})
}

// Price implements strategy.Feed. A fresh websocket price is preferred;
// otherwise the ticker endpoint is queried.
func (c *Client) Price(ctx context.Context, market string) (float64, error) {
	if c.stream != nil {
		if p, ok := c.stream.Price(market, c.maxAge); ok {
			return p, nil
		}
	}

	tickers, err := c.Tickers(ctx, market)
	if err != nil {
		return 0, err
	}
	for _, t := range tickers {
		if t.Market == market {
			return t.TradePrice, nil
		}
	}
	return 0, fmt.Errorf("%s: %w", market, domain.ErrTickerNotFound)
}

func toTickers(rows []tickerResponse) []domain.Ticker {
	out := make([]domain.Ticker, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
