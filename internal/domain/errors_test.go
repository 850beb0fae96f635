package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNetworkTimeoutError(t *testing.T) {
	baseErr := errors.New("i/o timeout")
	err := &NetworkTimeoutError{Op: "GET /v1/ticker", Err: baseErr}

	if !err.IsRetriable() {
		t.Error("Expected timeout to be retriable")
	}

	want := "network timeout: GET /v1/ticker: i/o timeout"
	if err.Error() != want {
		t.Errorf("Error message = %q, want %q", err.Error(), want)
	}

	if !errors.Is(err, baseErr) {
		t.Error("Expected error to wrap baseErr")
	}
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", &NetworkTimeoutError{Op: "dial", Err: errors.New("x")}, true},
		{"rate limited", &ExchangeAPIError{Status: 429, Code: "too_many_requests"}, true},
		{"server error", &ExchangeAPIError{Status: 502, Code: "http_502"}, true},
		{"rejected", &ExchangeAPIError{Status: 400, Code: "insufficient_funds_bid"}, false},
		{"construction", &RequestConstructionError{Op: "marshal", Err: errors.New("x")}, false},
		{"signing", &AuthSigningError{Err: ErrMissingCredentials}, false},
		{"wrapped", fmt.Errorf("tick: %w", &NetworkTimeoutError{Op: "read", Err: errors.New("x")}), true},
		{"plain", errors.New("plain error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetriable(tt.err); got != tt.want {
				t.Errorf("IsRetriable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsGatewayError(t *testing.T) {
	if !IsGatewayError(fmt.Errorf("wrap: %w", &ExchangeAPIError{Code: "x"})) {
		t.Error("wrapped ExchangeAPIError should be a gateway error")
	}
	if !IsGatewayError(&AuthSigningError{Err: ErrMissingCredentials}) {
		t.Error("AuthSigningError should be a gateway error")
	}
	if IsGatewayError(&InsufficientDataError{Need: 20, Have: 3}) {
		t.Error("InsufficientDataError is raised locally")
	}
	if IsGatewayError(errors.New("boom")) {
		t.Error("plain error is not a gateway error")
	}
}

func TestErrorKind(t *testing.T) {
	cases := map[string]error{
		"none":                 nil,
		"insufficient_data":    &InsufficientDataError{Need: 15, Have: 2},
		"exchange_api":         &ExchangeAPIError{Code: "invalid_price_ask"},
		"network_timeout":      &NetworkTimeoutError{Op: "GET", Err: errors.New("x")},
		"request_construction": &RequestConstructionError{Op: "marshal", Err: errors.New("x")},
		"auth_signing":         &AuthSigningError{Err: ErrMissingCredentials},
		"config":               &ConfigError{Field: "api.upbit.access_key", Err: ErrMissingCredentials},
		"unknown":              errors.New("boom"),
	}

	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Errorf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("missing value")
	err := &ConfigError{Field: "api_key", Err: baseErr}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [api_key]: missing value"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}
