package database

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ksred/restock-api/internal/database/migrations"
	"github.com/ksred/restock-api/internal/types"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	if path == "" {
		path = "restock.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddExecutionLogs(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&types.Order{},
		&types.LineItem{},
		&types.AuditEntry{},
		&types.ReplenishmentSuggestion{},
		&types.ScheduleConfig{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// NewTestDatabase opens an isolated in-memory database, one per call. The
// shared cache keeps the database alive across the connection pool while
// the unique name isolates concurrent tests.
func NewTestDatabase() (*gorm.DB, error) {
	return NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
}
