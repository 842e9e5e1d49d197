package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultDisplayName = "User"

var (
	ErrMissingToken  = errors.New("session: token required")
	ErrInvalidToken  = errors.New("session: invalid token")
	ErrMissingExpiry = errors.New("session: expiry claim required")
)

// Claims mirrors the payload of the bearer token issued at login.
type Claims struct {
	SubjectID string
	Username  string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Decode reads the claims of a token without verifying its signature. The
// client never holds the signing key; the API verifies every request.
func Decode(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, ErrMissingToken
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(trimmed, mapClaims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	expiresAt, err := mapClaims.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if expiresAt == nil {
		return Claims{}, ErrMissingExpiry
	}

	claims := Claims{
		SubjectID: subjectString(mapClaims["sub"]),
		Username:  stringClaim(mapClaims, "username"),
		Role:      stringClaim(mapClaims, "role"),
		ExpiresAt: expiresAt.Time,
	}
	if issuedAt, err := mapClaims.GetIssuedAt(); err == nil && issuedAt != nil {
		claims.IssuedAt = issuedAt.Time
	}
	return claims, nil
}

// Expired reports whether the expiry instant lies before now, compared at
// millisecond precision.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt.UnixMilli() < now.UnixMilli()
}

// DisplayName returns the name shown in the welcome banner.
func (c Claims) DisplayName() string {
	if name := strings.TrimSpace(c.Username); name != "" {
		return name
	}
	return defaultDisplayName
}

// Remaining returns the time left before expiry, never negative.
func (c Claims) Remaining(now time.Time) time.Duration {
	remaining := c.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return strings.TrimSpace(value)
}

func subjectString(raw any) string {
	switch value := raw.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(value, 10)
	default:
		return ""
	}
}
