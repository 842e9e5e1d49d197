package database

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/grpweb/grpweb/internal/catalog"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsTrimsCatalogFields(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&catalog.Message{}, &catalog.Position{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	position := catalog.Position{Code: " PRES ", Name: "President "}
	if err := database.Create(&position).Error; err != nil {
		testContext.Fatalf("failed to insert position: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored catalog.Position
	if err := database.Where("position_id = ?", position.ID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload position: %v", err)
	}
	if stored.Code != "PRES" || stored.Name != "President" {
		testContext.Fatalf("expected trimmed position, got %+v", stored)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationTrimCatalogFields).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("expected re-run to be a no-op: %v", err)
	}
}

func TestOpenSQLiteCreatesSchema(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "grpweb.db")

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	for _, table := range []string{"accounts", "messages", "positions", "db_migrations"} {
		if !database.Migrator().HasTable(table) {
			testContext.Fatalf("expected table %s", table)
		}
	}
	if _, err := OpenSQLite("", nil); err == nil {
		testContext.Fatalf("expected error for empty path")
	}
}
