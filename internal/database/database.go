package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	appconfig "github.com/GTDGit/gtd_gateway/internal/config"
)

// Connect opens a database for the configured driver. It applies a small retry
// strategy to handle transient bootstrapping issues (e.g., DB container starting
// up). The returned *sqlx.DB has pool settings pre-configured and is pinged
// before returning.
func Connect(cfg *appconfig.DatabaseConfig) (*sqlx.DB, error) {
	if cfg == nil {
		return nil, errors.New("nil database config")
	}

	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	// Retry policy: up to 5 attempts, exponential backoff starting at 500ms.
	const (
		maxAttempts = 5
		baseDelay   = 500 * time.Millisecond
	)

	var db *sqlx.DB
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		db, lastErr = sqlx.Open(driver, dsn)
		if lastErr != nil {
			sleepWithBackoff(attempt, baseDelay)
			continue
		}

		setPool(db.DB, driver)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			return db, nil
		}

		_ = db.Close()
		sleepWithBackoff(attempt, baseDelay)
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxAttempts, lastErr)
}

// OpenSQLite opens a SQLite database file without retries. Used by tooling and tests.
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open(appconfig.DriverSQLite, sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	setPool(db.DB, appconfig.DriverSQLite)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func dataSource(cfg *appconfig.DatabaseConfig) (string, string, error) {
	switch cfg.Driver {
	case appconfig.DriverPostgres, "":
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=%s",
			url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
		)
		return appconfig.DriverPostgres, dsn, nil
	case appconfig.DriverSQLite:
		return appconfig.DriverSQLite, sqliteDSN(cfg.SQLitePath), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
}

// setPool configures the connection pool for the database.
func setPool(db *sql.DB, driver string) {
	if driver == appconfig.DriverSQLite {
		// single writer: serialises transactions, which also serialises token rotation
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

// sleepWithBackoff sleeps for an exponentially increasing duration.
func sleepWithBackoff(attempt int, base time.Duration) {
	// Simple exponential backoff: base * 2^(attempt-1), capped to 5s.
	d := base << (attempt - 1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	time.Sleep(d)
}
