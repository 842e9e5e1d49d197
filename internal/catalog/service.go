package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew      = "catalog.service.new"
	opListMessages    = "catalog.list_messages"
	opCreateMessage   = "catalog.create_message"
	opUpdateMessage   = "catalog.update_message"
	opDeleteMessage   = "catalog.delete_message"
	opListPositions   = "catalog.list_positions"
	opCreatePosition  = "catalog.create_position"
	opUpdatePosition  = "catalog.update_position"
	opDeletePosition  = "catalog.delete_position"
	reasonInvalid     = "invalid_input"
	reasonNotFound    = "not_found"
	reasonDuplicate   = "duplicate_code"
	reasonQueryFailed = "query_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service stores messages and positions.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// ListMessages returns every message in creation order.
func (s *Service) ListMessages(ctx context.Context) ([]Message, error) {
	messages := []Message{}
	if err := s.db.WithContext(ctx).Order("message_id ASC").Find(&messages).Error; err != nil {
		s.logError(opListMessages, reasonQueryFailed, err)
		return nil, newServiceError(opListMessages, reasonQueryFailed, err)
	}
	return messages, nil
}

func (s *Service) CreateMessage(ctx context.Context, input MessageInput) (Message, error) {
	normalized, err := input.normalized()
	if err != nil {
		return Message{}, newServiceError(opCreateMessage, reasonInvalid, err)
	}
	message := Message{Code: normalized.Code, Content: normalized.Content}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		s.logError(opCreateMessage, reasonQueryFailed, err)
		return Message{}, newServiceError(opCreateMessage, reasonQueryFailed, err)
	}
	return message, nil
}

func (s *Service) UpdateMessage(ctx context.Context, id int64, input MessageInput) (Message, error) {
	normalized, err := input.normalized()
	if err != nil {
		return Message{}, newServiceError(opUpdateMessage, reasonInvalid, err)
	}

	var message Message
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := takeByID(tx, "message_id", id, &message); err != nil {
			return err
		}
		message.Code = normalized.Code
		message.Content = normalized.Content
		return tx.Save(&message).Error
	})
	if txErr != nil {
		return Message{}, s.wrap(opUpdateMessage, txErr, zap.Int64("message_id", id))
	}
	return message, nil
}

func (s *Service) DeleteMessage(ctx context.Context, id int64) error {
	if err := deleteByID(s.db.WithContext(ctx), "message_id", id, &Message{}); err != nil {
		return s.wrap(opDeleteMessage, err, zap.Int64("message_id", id))
	}
	return nil
}

// ListPositions returns every position in creation order.
func (s *Service) ListPositions(ctx context.Context) ([]Position, error) {
	positions := []Position{}
	if err := s.db.WithContext(ctx).Order("position_id ASC").Find(&positions).Error; err != nil {
		s.logError(opListPositions, reasonQueryFailed, err)
		return nil, newServiceError(opListPositions, reasonQueryFailed, err)
	}
	return positions, nil
}

func (s *Service) CreatePosition(ctx context.Context, input PositionInput) (Position, error) {
	normalized, err := input.normalized()
	if err != nil {
		return Position{}, newServiceError(opCreatePosition, reasonInvalid, err)
	}

	position := Position{Code: normalized.Code, Name: normalized.Name}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCodeAvailable(tx, normalized.Code, 0); err != nil {
			return err
		}
		return tx.Create(&position).Error
	})
	if txErr != nil {
		return Position{}, s.wrap(opCreatePosition, txErr, zap.String("position_code", normalized.Code))
	}
	return position, nil
}

func (s *Service) UpdatePosition(ctx context.Context, id int64, input PositionInput) (Position, error) {
	normalized, err := input.normalized()
	if err != nil {
		return Position{}, newServiceError(opUpdatePosition, reasonInvalid, err)
	}

	var position Position
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := takeByID(tx, "position_id", id, &position); err != nil {
			return err
		}
		if err := ensureCodeAvailable(tx, normalized.Code, id); err != nil {
			return err
		}
		position.Code = normalized.Code
		position.Name = normalized.Name
		return tx.Save(&position).Error
	})
	if txErr != nil {
		return Position{}, s.wrap(opUpdatePosition, txErr, zap.Int64("position_id", id))
	}
	return position, nil
}

func (s *Service) DeletePosition(ctx context.Context, id int64) error {
	if err := deleteByID(s.db.WithContext(ctx), "position_id", id, &Position{}); err != nil {
		return s.wrap(opDeletePosition, err, zap.Int64("position_id", id))
	}
	return nil
}

func takeByID(tx *gorm.DB, column string, id int64, target any) error {
	err := tx.Where(column+" = ?", id).Take(target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, column, id)
	}
	return err
}

func deleteByID(db *gorm.DB, column string, id int64, model any) error {
	result := db.Where(column+" = ?", id).Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, column, id)
	}
	return nil
}

func ensureCodeAvailable(tx *gorm.DB, code string, exceptID int64) error {
	var count int64
	err := tx.Model(&Position{}).
		Where("position_code = ? AND position_id <> ?", code, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, code)
	}
	return nil
}

func (s *Service) wrap(operation string, err error, fields ...zap.Field) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return newServiceError(operation, reasonNotFound, err)
	case errors.Is(err, ErrDuplicateCode):
		return newServiceError(operation, reasonDuplicate, err)
	default:
		s.logError(operation, reasonQueryFailed, err, fields...)
		return newServiceError(operation, reasonQueryFailed, err)
	}
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	if s.logger == nil {
		return
	}
	logFields := append([]zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	}, fields...)
	s.logger.Error("catalog operation failed", logFields...)
}
