package users

import (
	"strings"
	"time"
)

// Account is a login of the development API.
type Account struct {
	ID           int64     `gorm:"column:account_id;primaryKey;autoIncrement"`
	Username     string    `gorm:"column:username;size:190;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;size:100;not null"`
	Role         string    `gorm:"column:role;size:64;not null"`
	LastLoginAt  time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing accounts.
func (Account) TableName() string {
	return "accounts"
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}
