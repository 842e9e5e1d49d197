package database

import (
	"errors"
	"time"

	"github.com/grpweb/grpweb/internal/catalog"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationTrimCatalogFields = "2026-10-01_trim_catalog_fields"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationTrimCatalogFields, apply: trimCatalogFields},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// trimCatalogFields strips whitespace stored before inputs were normalized.
func trimCatalogFields(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&catalog.Message{}).
			Where("message_code <> TRIM(message_code) OR message_content <> TRIM(message_content)").
			Updates(map[string]interface{}{
				"message_code":    gorm.Expr("TRIM(message_code)"),
				"message_content": gorm.Expr("TRIM(message_content)"),
			}).Error; err != nil {
			return err
		}
		return tx.Model(&catalog.Position{}).
			Where("position_code <> TRIM(position_code) OR position_name <> TRIM(position_name)").
			Updates(map[string]interface{}{
				"position_code": gorm.Expr("TRIM(position_code)"),
				"position_name": gorm.Expr("TRIM(position_name)"),
			}).Error
	})
}
