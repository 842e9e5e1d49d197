package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Account{}); err != nil {
		t.Fatalf("failed to migrate account schema: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		BcryptCost: bcrypt.MinCost,
		Clock: func() time.Time {
			return time.Unix(100, 0)
		},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestEnsureAccountCreatesAndAuthenticates(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	created, err := service.EnsureAccount(ctx, " alice ", "wonderland", "")
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if created.ID == 0 || created.Username != "alice" || created.Role != defaultRole {
		t.Fatalf("unexpected account %+v", created)
	}
	if created.PasswordHash == "wonderland" {
		t.Fatalf("expected password to be hashed")
	}

	account, err := service.Authenticate(ctx, "alice", "wonderland")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if account.ID != created.ID {
		t.Fatalf("expected same account, got %d and %d", account.ID, created.ID)
	}
	if !account.LastLoginAt.Equal(time.Unix(100, 0).UTC()) {
		t.Fatalf("expected last login to be recorded, got %s", account.LastLoginAt)
	}
}

func TestEnsureAccountResetsExistingPassword(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	first, err := service.EnsureAccount(ctx, "admin", "old-password", "admin")
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	second, err := service.EnsureAccount(ctx, "admin", "new-password", "admin")
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected account to be reused")
	}
	if _, err := service.Authenticate(ctx, "admin", "old-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	if _, err := service.Authenticate(ctx, "admin", "new-password"); err != nil {
		t.Fatalf("expected new password to work: %v", err)
	}
}

func TestAuthenticateRejectsUnknownAndWrongCredentials(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	if _, err := service.EnsureAccount(ctx, "bob", "builder", "member"); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	testCases := []struct {
		name     string
		username string
		password string
	}{
		{name: "unknown-user", username: "carol", password: "builder"},
		{name: "wrong-password", username: "bob", password: "breaker"},
		{name: "empty-password", username: "bob", password: ""},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := service.Authenticate(ctx, testCase.username, testCase.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected invalid credentials, got %v", err)
			}
		})
	}
}

func TestEnsureAccountRejectsInvalidInput(t *testing.T) {
	service := newTestService(t)
	if _, err := service.EnsureAccount(context.Background(), " ", "secret", ""); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected invalid account, got %v", err)
	}
	long := make([]byte, maxPasswordBytes+1)
	for index := range long {
		long[index] = 'x'
	}
	if _, err := service.EnsureAccount(context.Background(), "dave", string(long), ""); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected long password rejection, got %v", err)
	}
}
