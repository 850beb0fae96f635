package upbit

import (
	"errors"
	"net/url"
	"testing"

	"upbit_bot/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseClaims(t *testing.T, token, secret string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return claims
}

func TestCanonicalQuery_SortsKeys(t *testing.T) {
	params := url.Values{}
	params.Set("volume", "0.01")
	params.Set("market", "KRW-BTC")
	params.Set("side", "bid")

	assert.Equal(t, "market=KRW-BTC&side=bid&volume=0.01", CanonicalQuery(params))
}

func TestHashQuery(t *testing.T) {
	// sha512("")
	assert.Equal(t,
		"cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e",
		HashQuery(""))
	assert.Len(t, HashQuery("market=KRW-BTC"), 128)
}

func TestSigner_TokenWithParams(t *testing.T) {
	s := NewSigner("access", "secret")
	s.nonce = func() string { return "fixed-nonce" }

	params := url.Values{"market": {"KRW-BTC"}, "state": {"wait"}}
	token, err := s.Token(params)
	require.NoError(t, err)

	claims := parseClaims(t, token, "secret")
	assert.Equal(t, "access", claims["access_key"])
	assert.Equal(t, "fixed-nonce", claims["nonce"])
	assert.Equal(t, "SHA512", claims["query_hash_alg"])
	assert.Equal(t, HashQuery("market=KRW-BTC&state=wait"), claims["query_hash"])
}

func TestSigner_TokenWithoutParams(t *testing.T) {
	s := NewSigner("access", "secret")

	token, err := s.Token(nil)
	require.NoError(t, err)

	claims := parseClaims(t, token, "secret")
	assert.NotContains(t, claims, "query_hash")
	assert.NotEmpty(t, claims["nonce"])
}

func TestSigner_NonceNeverRepeats(t *testing.T) {
	s := NewSigner("access", "secret")
	seen := map[string]bool{}

	for i := 0; i < 100; i++ {
		token, err := s.Token(nil)
		require.NoError(t, err)
		nonce := parseClaims(t, token, "secret")["nonce"].(string)
		require.False(t, seen[nonce], "nonce %s repeated", nonce)
		seen[nonce] = true
	}
}

func TestSigner_MissingKeys(t *testing.T) {
	for _, s := range []*Signer{NewSigner("", "secret"), NewSigner("access", "")} {
		_, err := s.Token(nil)

		var authErr *domain.AuthSigningError
		require.True(t, errors.As(err, &authErr))
		assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	}
}
