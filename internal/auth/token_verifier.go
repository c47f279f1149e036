package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig configures verification of identity tokens issued by the upstream gateway.
type TokenConfig struct {
	Secret string
	Issuer string
	Clock  func() time.Time
}

// Claims represents the claims read from an upstream identity token. The subject carries the
// numeric user id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject as a user id.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Subject), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("jwt: subject is not a user id")
	}
	return uint(id), nil
}

// TokenVerifier validates HS256 tokens signed by the upstream gateway. It never issues tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenVerifier constructs a TokenVerifier when provided with the required configuration.
func NewTokenVerifier(cfg TokenConfig) (*TokenVerifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenVerifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    now,
	}, nil
}

// Verify parses and validates a signed JWT, returning its claims.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, errors.New("jwt: invalid issuer")
	}

	if _, err := claims.UserID(); err != nil {
		return nil, err
	}

	return &claims, nil
}
