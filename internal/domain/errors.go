package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// InsufficientDataError is returned by indicators when the input series is
// shorter than the window they need. Inputs are never padded.
type InsufficientDataError struct {
	Need int
	Have int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need %d values, have %d", e.Need, e.Have)
}

// ExchangeAPIError is a structured rejection returned by the exchange,
// e.g. insufficient_funds_bid or invalid_price_ask.
type ExchangeAPIError struct {
	Status  int
	Code    string
	Message string
}

func (e *ExchangeAPIError) Error() string {
	return fmt.Sprintf("exchange api error [%s] (status %d): %s", e.Code, e.Status, e.Message)
}

func (e *ExchangeAPIError) IsRetriable() bool {
	return e.Status == 429 || e.Status >= 500
}

// NetworkTimeoutError means the request was sent but no response arrived.
type NetworkTimeoutError struct {
	Op  string // Operation that failed (e.g., "GET /v1/ticker")
	Err error
}

func (e *NetworkTimeoutError) Error() string {
	return "network timeout: " + e.Op + ": " + e.Err.Error()
}

func (e *NetworkTimeoutError) IsRetriable() bool {
	return true
}

func (e *NetworkTimeoutError) Unwrap() error {
	return e.Err
}

// RequestConstructionError means the request was never sent.
type RequestConstructionError struct {
	Op  string
	Err error
}

func (e *RequestConstructionError) Error() string {
	return "request construction failed: " + e.Op + ": " + e.Err.Error()
}

func (e *RequestConstructionError) IsRetriable() bool {
	return false
}

func (e *RequestConstructionError) Unwrap() error {
	return e.Err
}

// AuthSigningError is returned when a private request cannot be signed.
type AuthSigningError struct {
	Err error
}

func (e *AuthSigningError) Error() string {
	return "auth signing failed: " + e.Err.Error()
}

func (e *AuthSigningError) IsRetriable() bool {
	return false
}

func (e *AuthSigningError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrMissingCredentials is returned when access or secret key is empty.
	ErrMissingCredentials = errors.New("missing api credentials")

	// ErrTickerNotFound is returned when the exchange omits the requested market.
	ErrTickerNotFound = errors.New("ticker not found")

	// ErrInvalidMarket is returned for market codes not shaped like "KRW-BTC".
	ErrInvalidMarket = errors.New("invalid market")
)

// IsGatewayError reports whether err originated from the exchange gateway
// and has therefore already been forwarded to the notifier.
func IsGatewayError(err error) bool {
	var (
		apiErr  *ExchangeAPIError
		netErr  *NetworkTimeoutError
		reqErr  *RequestConstructionError
		authErr *AuthSigningError
	)
	return errors.As(err, &apiErr) ||
		errors.As(err, &netErr) ||
		errors.As(err, &reqErr) ||
		errors.As(err, &authErr)
}

// ErrorKind returns a stable label for metrics and logs.
func ErrorKind(err error) string {
	var (
		dataErr *InsufficientDataError
		apiErr  *ExchangeAPIError
		netErr  *NetworkTimeoutError
		reqErr  *RequestConstructionError
		authErr *AuthSigningError
		cfgErr  *ConfigError
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &dataErr):
		return "insufficient_data"
	case errors.As(err, &apiErr):
		return "exchange_api"
	case errors.As(err, &netErr):
		return "network_timeout"
	case errors.As(err, &reqErr):
		return "request_construction"
	case errors.As(err, &authErr):
		return "auth_signing"
	case errors.As(err, &cfgErr):
		return "config"
	default:
		return "unknown"
	}
}
