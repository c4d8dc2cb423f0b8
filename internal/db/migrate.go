package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/zulandar/praktika/internal/models"
)

// AllModels returns the models stored under their default table names.
// Check rows go to a configurable table and are migrated separately.
func AllModels() []interface{} {
	return []interface{}{
		&models.WorkflowRun{},
		&models.JobLog{},
	}
}

// AutoMigrate creates or updates all tables, placing checks in checksTable.
func AutoMigrate(db *gorm.DB, checksTable string) error {
	if checksTable == "" {
		return fmt.Errorf("db: auto-migrate: checks table name is required")
	}
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	if err := db.Table(checksTable).AutoMigrate(&models.Check{}); err != nil {
		return fmt.Errorf("db: auto-migrate %s: %w", checksTable, err)
	}
	return nil
}

// DropTables removes every praktika table, including checksTable.
func DropTables(db *gorm.DB, checksTable string) error {
	m := db.Migrator()
	if err := m.DropTable(checksTable); err != nil {
		return fmt.Errorf("db: drop %s: %w", checksTable, err)
	}
	if err := m.DropTable(AllModels()...); err != nil {
		return fmt.Errorf("db: drop tables: %w", err)
	}
	return nil
}
