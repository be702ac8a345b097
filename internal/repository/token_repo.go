package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_gateway/internal/database"
	"github.com/GTDGit/gtd_gateway/internal/models"
)

const tokenColumns = `id, gateway_id, token_hash, salt, lookup_id, status, created_at, revoked_at`

// TokenRepository provides data access methods for the gateway_tokens table.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create inserts a token record. A lookup id collision yields ErrDuplicate.
func (r *TokenRepository) Create(ctx context.Context, t *models.GatewayToken) error {
	conn := database.Conn(ctx, r.db)
	query := conn.Rebind(`INSERT INTO gateway_tokens (` + tokenColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := conn.ExecContext(ctx, query,
		t.ID, t.GatewayID, t.TokenHash, t.Salt, t.LookupID, t.Status, t.CreatedAt, t.RevokedAt)
	return mapInsertErr(err)
}

// GetByLookupID returns the token with the given public lookup id, whatever its status.
func (r *TokenRepository) GetByLookupID(ctx context.Context, lookupID string) (*models.GatewayToken, error) {
	conn := database.Conn(ctx, r.db)
	var t models.GatewayToken
	query := conn.Rebind(`SELECT ` + tokenColumns + ` FROM gateway_tokens WHERE lookup_id = ?`)
	if err := sqlx.GetContext(ctx, conn, &t, query, lookupID); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByID returns a token that belongs to gatewayID.
func (r *TokenRepository) GetByID(ctx context.Context, id, gatewayID string) (*models.GatewayToken, error) {
	conn := database.Conn(ctx, r.db)
	var t models.GatewayToken
	query := conn.Rebind(`SELECT ` + tokenColumns + ` FROM gateway_tokens WHERE id = ? AND gateway_id = ?`)
	if err := sqlx.GetContext(ctx, conn, &t, query, id, gatewayID); err != nil {
		return nil, err
	}
	return &t, nil
}

// CountActive returns the number of active tokens of a gateway.
func (r *TokenRepository) CountActive(ctx context.Context, gatewayID string) (int, error) {
	conn := database.Conn(ctx, r.db)
	var n int
	query := conn.Rebind(`SELECT COUNT(*) FROM gateway_tokens WHERE gateway_id = ? AND status = ?`)
	if err := sqlx.GetContext(ctx, conn, &n, query, gatewayID, models.TokenStatusActive); err != nil {
		return 0, err
	}
	return n, nil
}

// ListActive returns the active tokens of a gateway, oldest first.
func (r *TokenRepository) ListActive(ctx context.Context, gatewayID string) ([]models.GatewayToken, error) {
	conn := database.Conn(ctx, r.db)
	var list []models.GatewayToken
	query := conn.Rebind(`SELECT ` + tokenColumns + ` FROM gateway_tokens
		WHERE gateway_id = ? AND status = ? ORDER BY created_at ASC, id ASC`)
	if err := sqlx.SelectContext(ctx, conn, &list, query, gatewayID, models.TokenStatusActive); err != nil {
		return nil, err
	}
	return list, nil
}

// Revoke flips an active token to revoked. It reports false when the token was
// not active, leaving revoked_at untouched.
func (r *TokenRepository) Revoke(ctx context.Context, id, gatewayID string, at time.Time) (bool, error) {
	conn := database.Conn(ctx, r.db)
	query := conn.Rebind(`UPDATE gateway_tokens SET status = ?, revoked_at = ?
		WHERE id = ? AND gateway_id = ? AND status = ?`)
	res, err := conn.ExecContext(ctx, query,
		models.TokenStatusRevoked, at, id, gatewayID, models.TokenStatusActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
