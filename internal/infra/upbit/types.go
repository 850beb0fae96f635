package upbit

import (
	"strconv"
	"time"

	"upbit_bot/internal/domain"

	"github.com/shopspring/decimal"
)

// apiErrorResponse is the error envelope returned by every endpoint.
type apiErrorResponse struct {
	Error *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// marketResponse is one row of GET /v1/market/all?is_details=true
type marketResponse struct {
	Market        string `json:"market"`
	KoreanName    string `json:"korean_name"`
	EnglishName   string `json:"english_name"`
	MarketWarning string `json:"market_warning,omitempty"` // NONE, CAUTION
	MarketEvent   *struct {
		Warning bool            `json:"warning"`
		Caution map[string]bool `json:"caution,omitempty"`
	} `json:"market_event,omitempty"`
}

func (r marketResponse) toDomain(now time.Time) domain.MarketInfo {
	warning := r.MarketWarning == "CAUTION"
	if r.MarketEvent != nil && r.MarketEvent.Warning {
		warning = true
	}
	return domain.MarketInfo{
		Market:      r.Market,
		KoreanName:  r.KoreanName,
		EnglishName: r.EnglishName,
		Warning:     warning,
		IsActive:    true,
		UpdatedAt:   now,
	}
}

// tickerResponse is one row of GET /v1/ticker and /v1/ticker/all
type tickerResponse struct {
	Market            string  `json:"market"`
	TradePrice        float64 `json:"trade_price"`
	OpeningPrice      float64 `json:"opening_price"`
	HighPrice         float64 `json:"high_price"`
	LowPrice          float64 `json:"low_price"`
	PrevClosingPrice  float64 `json:"prev_closing_price"`
	Change            string  `json:"change"` // RISE, EVEN, FALL
	SignedChangeRate  float64 `json:"signed_change_rate"`
	AccTradePrice24h  float64 `json:"acc_trade_price_24h"`
	AccTradeVolume24h float64 `json:"acc_trade_volume_24h"`
	Timestamp         int64   `json:"timestamp"` // ms
}

func (r tickerResponse) toDomain() domain.Ticker {
	return domain.Ticker{
		Market:           r.Market,
		TradePrice:       r.TradePrice,
		AccTradePrice24h: r.AccTradePrice24h,
		Timestamp:        time.UnixMilli(r.Timestamp),
	}
}

// candleResponse is one row of GET /v1/candles/minutes/{unit}
type candleResponse struct {
	Market               string  `json:"market"`
	CandleDateTimeUTC    string  `json:"candle_date_time_utc"` // 2006-01-02T15:04:05
	CandleDateTimeKST    string  `json:"candle_date_time_kst"`
	OpeningPrice         float64 `json:"opening_price"`
	HighPrice            float64 `json:"high_price"`
	LowPrice             float64 `json:"low_price"`
	TradePrice           float64 `json:"trade_price"` // close
	Timestamp            int64   `json:"timestamp"`
	CandleAccTradePrice  float64 `json:"candle_acc_trade_price"`
	CandleAccTradeVolume float64 `json:"candle_acc_trade_volume"`
	Unit                 int     `json:"unit"`
}

func (r candleResponse) toDomain() domain.Candle {
	openTime, err := time.Parse(candleTimeLayout, r.CandleDateTimeUTC)
	if err != nil {
		openTime = time.UnixMilli(r.Timestamp)
	}
	return domain.Candle{
		Market:   r.Market,
		OpenTime: openTime.UTC(),
		Open:     r.OpeningPrice,
		High:     r.HighPrice,
		Low:      r.LowPrice,
		Close:    r.TradePrice,
		Volume:   r.CandleAccTradeVolume,
	}
}

// accountResponse is one row of GET /v1/accounts. Numbers arrive as strings.
type accountResponse struct {
	Currency            string `json:"currency"`
	Balance             string `json:"balance"`
	Locked              string `json:"locked"`
	AvgBuyPrice         string `json:"avg_buy_price"`
	AvgBuyPriceModified bool   `json:"avg_buy_price_modified"`
	UnitCurrency        string `json:"unit_currency"`
}

func (r accountResponse) toDomain() domain.Position {
	return domain.Position{
		Market:       domain.MarketCode(r.UnitCurrency, r.Currency),
		Currency:     r.Currency,
		UnitCurrency: r.UnitCurrency,
		Balance:      parseDecimal(r.Balance),
		Locked:       parseDecimal(r.Locked),
		AvgBuyPrice:  parseFloat(&r.AvgBuyPrice),
	}
}

// orderRequest is the body of POST /v1/orders
type orderRequest struct {
	Market  string `json:"market"`
	Side    string `json:"side"` // bid, ask
	Volume  string `json:"volume"`
	Price   string `json:"price"`
	OrdType string `json:"ord_type"` // limit
}

// orderResponse is returned by order endpoints. Price and volume are null
// for market orders.
type orderResponse struct {
	UUID            string  `json:"uuid"`
	Side            string  `json:"side"`
	OrdType         string  `json:"ord_type"`
	Price           *string `json:"price"`
	State           string  `json:"state"`
	Market          string  `json:"market"`
	CreatedAt       string  `json:"created_at"`
	Volume          *string `json:"volume"`
	RemainingVolume *string `json:"remaining_volume"`
	ExecutedVolume  string  `json:"executed_volume"`
	Locked          string  `json:"locked"`
	PaidFee         string  `json:"paid_fee"`
	TradesCount     int     `json:"trades_count"`
}

func (r orderResponse) toDomain() domain.Order {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return domain.Order{
		ID:              r.UUID,
		Market:          r.Market,
		Side:            fromUpbitSide(r.Side),
		Price:           parseFloat(r.Price),
		Volume:          parseFloat(r.Volume),
		RemainingVolume: parseFloat(r.RemainingVolume),
		State:           domain.OrderState(r.State),
		CreatedAt:       created,
	}
}

func toUpbitSide(s domain.Side) string {
	if s == domain.SideSell {
		return "ask"
	}
	return "bid"
}

func fromUpbitSide(s string) domain.Side {
	if s == "ask" {
		return domain.SideSell
	}
	return domain.SideBuy
}

// parseDecimal keeps the exact volume string; malformed input is zero.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseFloat(s *string) float64 {
	if s == nil || *s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return 0
	}
	return f
}
