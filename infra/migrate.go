package infra

import (
	"errors"
	"fmt"

	infrarepo "github.com/amirasaad/householdledger/infra/repository"
	"github.com/amirasaad/householdledger/pkg/config"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// Migrate brings the schema up to date. Postgres runs the versioned SQL
// migrations found at cnf.Migrations; the other dialects use AutoMigrate.
func Migrate(db *gorm.DB, cnf *config.DB) error {
	dialect, _, err := ParseDatabaseURL(cnf.Url)
	if err != nil {
		return err
	}
	if dialect != DialectPostgres {
		return db.AutoMigrate(infrarepo.Models()...)
	}
	return RunMigrations(db, cnf.Migrations)
}

// RunMigrations applies golang-migrate migrations from sourceURL
// (e.g. file://internal/migrations) to a postgres database.
func RunMigrations(db *gorm.DB, sourceURL string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	driver, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("open migrations %s: %w", sourceURL, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
