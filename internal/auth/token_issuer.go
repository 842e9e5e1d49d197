package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenTTL = 60 * time.Minute
	// TokenType is the scheme reported alongside issued tokens.
	TokenType = "Bearer"
)

var (
	ErrMissingToken   = errors.New("auth: token required")
	ErrInvalidToken   = errors.New("auth: invalid token")
	ErrExpiredToken   = errors.New("auth: token expired")
	ErrMissingAccount = errors.New("auth: account id required")

	errMissingSigningSecret = errors.New("auth: signing secret must be provided")
)

// Identity is the account a token is issued for.
type Identity struct {
	AccountID int64
	Username  string
	Role      string
}

// AccessClaims is the payload of an access token. The account id travels as
// a numeric "sub".
type AccessClaims struct {
	AccountID int64  `json:"sub"`
	Username  string `json:"username"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the account the claims were issued for.
func (c AccessClaims) Identity() Identity {
	return Identity{AccountID: c.AccountID, Username: c.Username, Role: c.Role}
}

// TokenIssuerConfig configures the HS256 token issuer.
type TokenIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	TokenTTL      time.Duration
	Clock         func() time.Time
}

// TokenIssuer issues and validates access tokens.
type TokenIssuer struct {
	signingSecret []byte
	issuer        string
	ttl           time.Duration
	clock         func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer. A zero TTL selects the default;
// a negative one is rejected.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, errMissingSigningSecret
	}
	ttl := cfg.TokenTTL
	if ttl < 0 {
		return nil, fmt.Errorf("auth: token ttl must be positive")
	}
	if ttl == 0 {
		ttl = defaultTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenIssuer{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        strings.TrimSpace(cfg.Issuer),
		ttl:           ttl,
		clock:         clock,
	}, nil
}

// IssueToken produces a signed token and its lifetime in seconds.
func (i *TokenIssuer) IssueToken(_ context.Context, identity Identity) (string, int64, error) {
	if identity.AccountID <= 0 {
		return "", 0, ErrMissingAccount
	}

	now := i.clock().UTC()
	expiresAt := now.Add(i.ttl)

	claims := AccessClaims{
		AccountID: identity.AccountID,
		Username:  identity.Username,
		Role:      identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(expiresAt.Sub(now).Seconds()), nil
}

// ValidateToken verifies signature, algorithm, issuer and expiry.
func (i *TokenIssuer) ValidateToken(tokenString string) (AccessClaims, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return AccessClaims{}, ErrMissingToken
	}

	options := []jwt.ParserOption{
		jwt.WithTimeFunc(i.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		options = append(options, jwt.WithIssuer(i.issuer))
	}

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.signingSecret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AccessClaims{}, ErrExpiredToken
		}
		return AccessClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.AccountID <= 0 {
		return AccessClaims{}, ErrMissingAccount
	}
	return *claims, nil
}
