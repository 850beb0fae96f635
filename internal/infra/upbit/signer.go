package upbit

import (
	"crypto/sha512"
	"encoding/hex"
	"net/url"

	"upbit_bot/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Signer produces Upbit bearer tokens for private endpoints
type Signer struct {
	accessKey string
	secretKey string
	nonce     func() string
}

// NewSigner creates a new Signer instance
func NewSigner(accessKey, secretKey string) *Signer {
	return &Signer{
		accessKey: accessKey,
		secretKey: secretKey,
		nonce:     uuid.NewString,
	}
}

// Token signs a HS256 JWT carrying the access key, a fresh nonce and, when
// params is not empty, the SHA512 hash of its canonical query string.
func (s *Signer) Token(params url.Values) (string, error) {
	if s.accessKey == "" || s.secretKey == "" {
		return "", &domain.AuthSigningError{Err: domain.ErrMissingCredentials}
	}

	claims := jwt.MapClaims{
		"access_key": s.accessKey,
		"nonce":      s.nonce(),
	}
	if len(params) > 0 {
		claims["query_hash"] = HashQuery(CanonicalQuery(params))
		claims["query_hash_alg"] = "SHA512"
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secretKey))
	if err != nil {
		return "", &domain.AuthSigningError{Err: err}
	}
	return token, nil
}

// CanonicalQuery encodes params with keys sorted ascending.
func CanonicalQuery(params url.Values) string {
	return params.Encode()
}

// HashQuery returns the hex SHA512 digest of query.
func HashQuery(query string) string {
	sum := sha512.Sum512([]byte(query))
	return hex.EncodeToString(sum[:])
}
