// Package databasetest provides migrated databases for tests.
package databasetest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_gateway/internal/database"
)

// New returns a fresh SQLite database with all migrations applied.
// The database lives in the test's temp dir and is closed on cleanup.
func New(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "gateway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// PostgresDSNEnv names the variable holding the DSN of a scratch PostgreSQL
// database. Tests calling NewPostgres are skipped when it is unset.
const PostgresDSNEnv = "TEST_POSTGRES_DSN"

// NewPostgres connects to the PostgreSQL database named by PostgresDSNEnv and
// applies all migrations. Callers scope their rows to fresh organization ids;
// the schema is shared between runs.
func NewPostgres(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}

	db, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Ping())

	require.NoError(t, database.Migrate(db))
	return db
}

// DropOrganization removes an organization with its gateways and their tokens.
func DropOrganization(t *testing.T, db *sqlx.DB, id string) {
	t.Helper()

	_, err := db.Exec(db.Rebind(`DELETE FROM gateways WHERE organization_id = ?`), id)
	require.NoError(t, err)
	_, err = db.Exec(db.Rebind(`DELETE FROM organizations WHERE id = ?`), id)
	require.NoError(t, err)
}

// SeedOrganization inserts an organization row.
func SeedOrganization(t *testing.T, db *sqlx.DB, id string) {
	t.Helper()

	_, err := db.Exec(db.Rebind(`INSERT INTO organizations (id, name) VALUES (?, ?)`), id, id)
	require.NoError(t, err)
}
