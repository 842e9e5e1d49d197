package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxPasswordBytes = 72
	defaultRole      = "member"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrInvalidAccount rejects accounts without a username or password.
	ErrInvalidAccount = errors.New("users: invalid account")
)

// ServiceConfig describes the dependencies of the account service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	BcryptCost int
	Logger     *zap.Logger
}

// Service authenticates and provisions accounts.
type Service struct {
	db     *gorm.DB
	now    func() time.Time
	cost   int
	logger *zap.Logger
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("users: bcrypt cost %d out of range", cost)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, now: clock, cost: cost, logger: logger}, nil
}

// EnsureAccount creates the account, or resets its password and role when it
// already exists.
func (s *Service) EnsureAccount(ctx context.Context, username, password, role string) (Account, error) {
	name := normalize(username)
	if name == "" || password == "" {
		return Account{}, ErrInvalidAccount
	}
	if len(password) > maxPasswordBytes {
		return Account{}, fmt.Errorf("%w: password must be %d bytes or fewer", ErrInvalidAccount, maxPasswordBytes)
	}
	accountRole := normalize(role)
	if accountRole == "" {
		accountRole = defaultRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("users: hashing password: %w", err)
	}

	var account Account
	err = s.db.WithContext(ctx).Where("username = ?", name).Take(&account).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		account = Account{Username: name, PasswordHash: string(hash), Role: accountRole}
		if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
			return Account{}, err
		}
		s.logger.Info("account created", zap.String("username", name), zap.String("role", accountRole))
	case err != nil:
		return Account{}, err
	default:
		updates := map[string]interface{}{"password_hash": string(hash), "role": accountRole}
		if err := s.db.WithContext(ctx).Model(&account).Updates(updates).Error; err != nil {
			return Account{}, err
		}
		account.PasswordHash = string(hash)
		account.Role = accountRole
		s.logger.Info("account updated", zap.String("username", name))
	}
	return account, nil
}

// Authenticate checks the password of username and records the login.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Account, error) {
	name := normalize(username)
	if name == "" || password == "" {
		return Account{}, ErrInvalidCredentials
	}

	var account Account
	err := s.db.WithContext(ctx).Where("username = ?", name).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, fmt.Errorf("users: comparing password hash: %w", err)
	}

	account.LastLoginAt = s.now().UTC()
	_ = s.db.WithContext(ctx).Model(&Account{}).
		Where("account_id = ?", account.ID).
		Update("last_login_at", account.LastLoginAt).
		Error
	return account, nil
}
