package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/grpweb/grpweb/internal/catalog"
	"github.com/grpweb/grpweb/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, log *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db, log); err != nil {
		return nil, err
	}

	if log != nil {
		log.Info("database initialized", zap.String("path", path))
	}
	return db, nil
}

// Migrate brings the schema up to date and applies pending data migrations.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(&users.Account{}, &catalog.Message{}, &catalog.Position{}, &migrationRecord{}); err != nil {
		return err
	}
	return applyMigrations(db, log)
}
