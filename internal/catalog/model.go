package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxCodeLength = 190

var (
	// ErrInvalidInput indicates a record with an empty or oversized field.
	ErrInvalidInput = errors.New("catalog: invalid input")
	// ErrNotFound indicates the addressed record does not exist.
	ErrNotFound = errors.New("catalog: record not found")
	// ErrDuplicateCode indicates a position code that is already taken.
	ErrDuplicateCode = errors.New("catalog: code already exists")
)

// Message is a system message shown on the dashboard.
type Message struct {
	ID        int64     `gorm:"column:message_id;primaryKey;autoIncrement" json:"message_id"`
	Code      string    `gorm:"column:message_code;size:190;not null" json:"message_code"`
	Content   string    `gorm:"column:message_content;type:text;not null" json:"message_content"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

// TableName exposes the table backing messages.
func (Message) TableName() string {
	return "messages"
}

// Position is an organizational position.
type Position struct {
	ID        int64     `gorm:"column:position_id;primaryKey;autoIncrement" json:"position_id"`
	Code      string    `gorm:"column:position_code;size:190;not null;uniqueIndex" json:"position_code"`
	Name      string    `gorm:"column:position_name;size:190;not null" json:"position_name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

// TableName exposes the table backing positions.
func (Position) TableName() string {
	return "positions"
}

// MessageInput is the writable part of a message.
type MessageInput struct {
	Code    string `json:"message_code"`
	Content string `json:"message_content"`
}

// PositionInput is the writable part of a position.
type PositionInput struct {
	Code string `json:"position_code"`
	Name string `json:"position_name"`
}

func (in MessageInput) normalized() (MessageInput, error) {
	normalized := MessageInput{Code: strings.TrimSpace(in.Code), Content: strings.TrimSpace(in.Content)}
	if err := requireFields(
		field{name: "message_code", value: normalized.Code, limit: maxCodeLength},
		field{name: "message_content", value: normalized.Content},
	); err != nil {
		return MessageInput{}, err
	}
	return normalized, nil
}

func (in PositionInput) normalized() (PositionInput, error) {
	normalized := PositionInput{Code: strings.TrimSpace(in.Code), Name: strings.TrimSpace(in.Name)}
	if err := requireFields(
		field{name: "position_code", value: normalized.Code, limit: maxCodeLength},
		field{name: "position_name", value: normalized.Name, limit: maxCodeLength},
	); err != nil {
		return PositionInput{}, err
	}
	return normalized, nil
}

type field struct {
	name  string
	value string
	limit int
}

func requireFields(fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, f.name)
		}
		if f.limit > 0 && len(f.value) > f.limit {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, f.name, f.limit)
		}
	}
	return nil
}
