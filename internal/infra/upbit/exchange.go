package upbit

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"upbit_bot/internal/domain"
)

// Accounts returns every non-quote holding as a position. The quote
// currency row of each holding's unit currency is skipped.
func (c *Client) Accounts(ctx context.Context) ([]domain.Position, error) {
	var rows []accountResponse
	if err := c.doRequest(ctx, http.MethodGet, "/v1/accounts", nil, true, &rows); err != nil {
		return nil, err
	}

	out := make([]domain.Position, 0, len(rows))
	for _, r := range rows {
		if r.Currency == r.UnitCurrency {
			continue
		}
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Position implements strategy.Feed. It returns nil when market is not held.
func (c *Client) Position(ctx context.Context, market string) (*domain.Position, error) {
	positions, err := c.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if positions[i].Market == market {
			return &positions[i], nil
		}
	}
	return nil, nil
}

// OpenOrders lists orders still waiting on market.
func (c *Client) OpenOrders(ctx context.Context, market string) ([]domain.Order, error) {
	params := url.Values{
		"market": {market},
		"state":  {string(domain.OrderStateWait)},
	}
	var rows []orderResponse
	if err := c.doRequest(ctx, http.MethodGet, "/v1/orders/open", params, true, &rows); err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// PlaceOrder submits a limit order.
func (c *Client) PlaceOrder(ctx context.Context, intent domain.OrderIntent) (*domain.Order, error) {
	req := orderRequest{
		Market:  intent.Market,
		Side:    toUpbitSide(intent.Side),
		Volume:  intent.Volume.String(),
		Price:   strconv.FormatFloat(intent.Price, 'f', -1, 64),
		OrdType: "limit",
	}
	params := url.Values{
		"market":   {req.Market},
		"side":     {req.Side},
		"volume":   {req.Volume},
		"price":    {req.Price},
		"ord_type": {req.OrdType},
	}

	var resp orderResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/orders", params, true, &resp); err != nil {
		return nil, err
	}
	order := resp.toDomain()
	c.logger.Info("order placed",
		"uuid", order.ID, "market", order.Market, "side", req.Side,
		"price", req.Price, "volume", req.Volume)
	return &order, nil
}

// CancelOrder cancels one order by uuid.
func (c *Client) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	var resp orderResponse
	if err := c.doRequest(ctx, http.MethodDelete, "/v1/order", url.Values{"uuid": {id}}, true, &resp); err != nil {
		return nil, err
	}
	order := resp.toDomain()
	return &order, nil
}

// CancelOpenOrders cancels every waiting order on market. A failed
// cancellation is recorded in its result and the rest are still attempted.
func (c *Client) CancelOpenOrders(ctx context.Context, market string) ([]domain.CancelResult, error) {
	orders, err := c.OpenOrders(ctx, market)
	if err != nil {
		return nil, err
	}

	results := make([]domain.CancelResult, 0, len(orders))
	for _, o := range orders {
		cancelled, err := c.CancelOrder(ctx, o.ID)
		results = append(results, domain.CancelResult{OrderID: o.ID, Order: cancelled, Err: err})
	}
	return results, nil
}
