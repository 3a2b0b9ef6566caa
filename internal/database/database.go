package database

import (
	"fmt"
	"testing"

	infrarepo "github.com/amirasaad/householdledger/infra/repository"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite" // Sqlite driver based on CGO
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenMemory opens a named shared-cache in-memory sqlite database with the
// ledger schema migrated. Every distinct name is a separate database.
func OpenMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	connection, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := connection.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := connection.AutoMigrate(infrarepo.Models()...); err != nil {
		return nil, err
	}
	return connection, nil
}

// NewTestDB returns a fresh in-memory database closed at test cleanup.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := OpenMemory(uuid.NewString())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
