package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/grpweb/grpweb/internal/session"
)

func newTestIssuer(t *testing.T, clock func() time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("super-secret"),
		Issuer:        "grpweb-devapi",
		TokenTTL:      30 * time.Minute,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return issuer
}

func TestTokenIssuerIssuesAccessTokens(t *testing.T) {
	issuer := newTestIssuer(t, nil)

	tokenString, expiresIn, err := issuer.IssueToken(context.Background(), Identity{
		AccountID: 12,
		Username:  "alice",
		Role:      "admin",
	})
	if err != nil {
		t.Fatalf("expected successful issuance: %v", err)
	}
	if expiresIn != int64((30 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expiry seconds %d", expiresIn)
	}

	payload := jwt.MapClaims{}
	if _, err := jwt.NewParser().ParseWithClaims(tokenString, payload, func(*jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	}); err != nil {
		t.Fatalf("failed to parse generated token: %v", err)
	}
	if subject, ok := payload["sub"].(float64); !ok || subject != 12 {
		t.Fatalf("expected numeric subject, got %#v", payload["sub"])
	}
	if payload["username"] != "alice" || payload["role"] != "admin" {
		t.Fatalf("unexpected claims %#v", payload)
	}
	if _, ok := payload["iat"]; !ok {
		t.Fatalf("expected issued-at claim")
	}
}

func TestIssuedTokensDecodeOnTheClient(t *testing.T) {
	issuer := newTestIssuer(t, nil)
	tokenString, _, err := issuer.IssueToken(context.Background(), Identity{AccountID: 3, Username: "alice"})
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	claims, err := session.Decode(tokenString)
	if err != nil {
		t.Fatalf("client failed to decode token: %v", err)
	}
	if claims.SubjectID != "3" || claims.DisplayName() != "alice" {
		t.Fatalf("unexpected client claims %+v", claims)
	}
	if claims.Expired(time.Now()) {
		t.Fatalf("expected fresh token")
	}
}

func TestTokenIssuerRejectsMissingSecret(t *testing.T) {
	if _, err := NewTokenIssuer(TokenIssuerConfig{TokenTTL: time.Minute}); err == nil {
		t.Fatalf("expected constructor error for missing secret")
	}
}

func TestNewTokenIssuerRejectsNegativeTTL(t *testing.T) {
	if _, err := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("secret"), TokenTTL: -time.Minute}); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}

func TestTokenIssuerValidatesIssuedTokens(t *testing.T) {
	issuer := newTestIssuer(t, nil)

	tokenString, _, err := issuer.IssueToken(context.Background(), Identity{AccountID: 321, Username: "bob", Role: "member"})
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	claims, err := issuer.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("expected validation success: %v", err)
	}
	if claims.Identity() != (Identity{AccountID: 321, Username: "bob", Role: "member"}) {
		t.Fatalf("unexpected identity %+v", claims.Identity())
	}

	if _, err := issuer.ValidateToken("invalid.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
	if _, err := issuer.ValidateToken(" "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestTokenIssuerRejectsExpiredTokens(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	past := newTestIssuer(t, func() time.Time { return issuedAt })
	tokenString, _, err := past.IssueToken(context.Background(), Identity{AccountID: 1, Username: "alice"})
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	present := newTestIssuer(t, nil)
	if _, err := present.ValidateToken(tokenString); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestTokenIssuerRejectsForeignSignatures(t *testing.T) {
	other, err := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("other-secret"), Issuer: "grpweb-devapi"})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	tokenString, _, err := other.IssueToken(context.Background(), Identity{AccountID: 1, Username: "mallory"})
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}
	if _, err := newTestIssuer(t, nil).ValidateToken(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature rejection, got %v", err)
	}
}

func TestIssueTokenRequiresAccount(t *testing.T) {
	if _, _, err := newTestIssuer(t, nil).IssueToken(context.Background(), Identity{Username: "ghost"}); !errors.Is(err, ErrMissingAccount) {
		t.Fatalf("expected missing account error, got %v", err)
	}
}
