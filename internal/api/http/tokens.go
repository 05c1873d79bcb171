package http

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hiehoo/pokemmo-server/internal/config"
)

// WalletClaims is the JWT payload issued after a verified wallet connect.
type WalletClaims struct {
	WalletAddress string `json:"walletAddress"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies wallet session tokens with an HMAC secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer from validated auth configuration.
func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
	}
}

// Issue returns a signed token binding walletAddress for the configured TTL.
func (t *TokenIssuer) Issue(walletAddress string) (string, error) {
	now := time.Now()
	claims := WalletClaims{
		WalletAddress: walletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses token and returns the wallet address it was issued for.
//
// Postcondition: a non-nil error means the token is unusable in every sense
// that matters here: bad signature, wrong algorithm, expired, or malformed.
func (t *TokenIssuer) Verify(token string) (string, error) {
	claims := &WalletClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.WalletAddress == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.WalletAddress, nil
}
