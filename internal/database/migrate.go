package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	appconfig "github.com/GTDGit/gtd_gateway/internal/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate applies all pending migrations for the database's dialect.
func Migrate(db *sqlx.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func newMigrator(db *sqlx.DB) (*migrate.Migrate, error) {
	var (
		driver migratedb.Driver
		dir    string
		err    error
	)

	switch db.DriverName() {
	case appconfig.DriverSQLite:
		dir = "migrations/sqlite"
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		dir = "migrations/postgres"
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("could not open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), driver)
	if err != nil {
		return nil, fmt.Errorf("could not create migration instance: %w", err)
	}
	return m, nil
}
