package upbit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"upbit_bot/internal/domain"
	"upbit_bot/internal/infra"
)

// Client is the Upbit REST API client. Every call, public or private,
// takes a slot from the shared limiter before it is dispatched.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *infra.Limiter
	signer     *Signer
	notifier   domain.Notifier
	metrics    *infra.Metrics
	stream     *Stream
	maxAge     time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the REST base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records gateway errors.
func WithMetrics(m *infra.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithStream serves prices from the websocket cache while it is fresh.
func WithStream(s *Stream, maxAge time.Duration) Option {
	return func(c *Client) {
		c.stream = s
		c.maxAge = maxAge
	}
}

// WithClock sets the time source used for candle anchors and cache ages.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a new Upbit API client.
func NewClient(cfg *infra.Config, limiter *infra.Limiter, notifier domain.Notifier, opts ...Option) *Client {
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	if limiter == nil {
		limiter = infra.NewLimiter(infra.DefaultRequestInterval, nil)
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:   cfg.API.Upbit.RestURL,
		userAgent: infra.DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		limiter:  limiter,
		signer:   NewSigner(cfg.API.Upbit.AccessKey, cfg.API.Upbit.SecretKey),
		notifier: notifier,
		now:      time.Now,
		logger:   slog.Default().With("module", "upbit_client"),
	}
	if c.baseURL == "" {
		c.baseURL = infra.DefaultRestURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest signs (when private), paces, sends and decodes one call.
// GET and DELETE carry params in the query string, POST as a JSON body.
// Any failure is classified and forwarded to the notifier exactly once.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, private bool, out any) error {
	op := method + " " + path

	target := c.baseURL + path
	var body io.Reader
	if method == http.MethodPost {
		payload := make(map[string]string, len(params))
		for k := range params {
			payload[k] = params.Get(k)
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return c.fail(ctx, op, &domain.RequestConstructionError{Op: op, Err: err})
		}
		body = bytes.NewReader(b)
	} else if len(params) > 0 {
		target += "?" + CanonicalQuery(params)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return c.fail(ctx, op, &domain.RequestConstructionError{Op: op, Err: err})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if private {
		token, err := c.signer.Token(params)
		if err != nil {
			return c.fail(ctx, op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return c.fail(ctx, op, &domain.RequestConstructionError{Op: op, Err: err})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(ctx, op, &domain.NetworkTimeoutError{Op: op, Err: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(ctx, op, &domain.NetworkTimeoutError{Op: op, Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(ctx, op, parseAPIError(resp.StatusCode, raw))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.fail(ctx, op, &domain.ExchangeAPIError{
			Status:  resp.StatusCode,
			Code:    "invalid_response",
			Message: err.Error(),
		})
	}
	return nil
}

// fail logs, counts and notifies a gateway error. Cancellation by the
// caller is returned silently.
func (c *Client) fail(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	c.logger.Warn("upbit request failed", slog.String("op", op), slog.Any("error", err))
	c.metrics.RecordError(domain.ErrorKind(err))
	c.notifier.Notify(fmt.Sprintf("⚠️ Upbit %s failed: %v", op, err))
	return err
}

func parseAPIError(status int, raw []byte) error {
	apiErr := &domain.ExchangeAPIError{Status: status}
	var env apiErrorResponse
	if json.Unmarshal(raw, &env) == nil && env.Error != nil {
		apiErr.Code = env.Error.Name
		apiErr.Message = env.Error.Message
		return apiErr
	}
	apiErr.Code = fmt.Sprintf("http_%d", status)
	apiErr.Message = string(raw)
	return apiErr
}
