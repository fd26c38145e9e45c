package db

import (
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	// postgres database driver and file source for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/procurement/internal/config"
	"github.com/diewo77/procurement/internal/models"
)

// MigrationsSource is where the versioned SQL files live, relative to the working directory.
const MigrationsSource = "file://migrations"

var requiredTables = []string{"users", "requests", "quotes", "quote_items", "labor_requests"}

// Migrate brings the schema up to date. With useSQL the versioned SQL files are
// applied through golang-migrate (postgres only); otherwise gorm AutoMigrate runs.
func Migrate(db *gorm.DB, cfg config.DatabaseConfig, useSQL bool) error {
	if useSQL {
		if cfg.Driver != "postgres" {
			return fmt.Errorf("sql migrations require postgres, got %q", cfg.Driver)
		}
		log.Info("running sql migrations")
		if err := runSQLMigrations(MigrationsSource, cfg.URL()); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	} else if err := AutoMigrate(db); err != nil {
		return err
	}
	for _, table := range requiredTables {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// AutoMigrate creates or alters every model table.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func runSQLMigrations(source, url string) error {
	m, err := migrate.New(source, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
