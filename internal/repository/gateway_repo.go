package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_gateway/internal/config"
	"github.com/GTDGit/gtd_gateway/internal/database"
	"github.com/GTDGit/gtd_gateway/internal/models"
)

const gatewayColumns = `id, organization_id, name, display_name, vhost, description, is_critical,
	functionality_type, is_active, created_at, updated_at, deleted_at`

// GatewayRepository provides data access methods for the gateways table.
// Every method joins the transaction carried by ctx, if any.
type GatewayRepository struct {
	db *sqlx.DB
}

// NewGatewayRepository creates a new GatewayRepository.
func NewGatewayRepository(db *sqlx.DB) *GatewayRepository {
	return &GatewayRepository{db: db}
}

// Create inserts a gateway. A live gateway with the same name in the same
// organization yields ErrDuplicate.
func (r *GatewayRepository) Create(ctx context.Context, g *models.Gateway) error {
	conn := database.Conn(ctx, r.db)
	query := conn.Rebind(`INSERT INTO gateways (id, organization_id, name, display_name, vhost, description,
		is_critical, functionality_type, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := conn.ExecContext(ctx, query,
		g.ID, g.OrganizationID, g.Name, g.DisplayName, g.Vhost, g.Description,
		g.IsCritical, g.FunctionalityType, g.IsActive, g.CreatedAt, g.UpdatedAt,
	)
	return mapInsertErr(err)
}

// GetByID returns a gateway by id, including tombstoned ones.
func (r *GatewayRepository) GetByID(ctx context.Context, id string) (*models.Gateway, error) {
	conn := database.Conn(ctx, r.db)
	var g models.Gateway
	query := conn.Rebind(`SELECT ` + gatewayColumns + ` FROM gateways WHERE id = ?`)
	if err := sqlx.GetContext(ctx, conn, &g, query, id); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetLive returns a non-deleted gateway owned by orgID, or sql.ErrNoRows.
func (r *GatewayRepository) GetLive(ctx context.Context, id, orgID string) (*models.Gateway, error) {
	conn := database.Conn(ctx, r.db)
	var g models.Gateway
	query := conn.Rebind(`SELECT ` + gatewayColumns + ` FROM gateways
		WHERE id = ? AND organization_id = ? AND deleted_at IS NULL`)
	if err := sqlx.GetContext(ctx, conn, &g, query, id, orgID); err != nil {
		return nil, err
	}
	return &g, nil
}

// LockLive is GetLive plus a row lock held until the surrounding transaction
// ends. On SQLite the single-connection pool already serialises writers.
func (r *GatewayRepository) LockLive(ctx context.Context, id, orgID string) (*models.Gateway, error) {
	conn := database.Conn(ctx, r.db)
	q := `SELECT ` + gatewayColumns + ` FROM gateways
		WHERE id = ? AND organization_id = ? AND deleted_at IS NULL`
	if conn.DriverName() == config.DriverPostgres {
		q += ` FOR UPDATE`
	}
	var g models.Gateway
	if err := sqlx.GetContext(ctx, conn, &g, conn.Rebind(q), id, orgID); err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns live gateways ordered by creation time. A nil orgID lists every
// organization.
func (r *GatewayRepository) List(ctx context.Context, orgID *string, limit, offset int) ([]models.Gateway, error) {
	conn := database.Conn(ctx, r.db)
	where, args := liveScope(orgID)
	query := conn.Rebind(`SELECT ` + gatewayColumns + ` FROM gateways` + where +
		` ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)

	var list []models.Gateway
	if err := sqlx.SelectContext(ctx, conn, &list, query, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// Count returns the number of live gateways, optionally scoped to orgID.
func (r *GatewayRepository) Count(ctx context.Context, orgID *string) (int, error) {
	conn := database.Conn(ctx, r.db)
	where, args := liveScope(orgID)
	var n int
	if err := sqlx.GetContext(ctx, conn, &n, conn.Rebind(`SELECT COUNT(*) FROM gateways`+where), args...); err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateMetadata persists the mutable metadata fields and updated_at.
func (r *GatewayRepository) UpdateMetadata(ctx context.Context, g *models.Gateway) error {
	conn := database.Conn(ctx, r.db)
	query := conn.Rebind(`UPDATE gateways
		SET display_name = ?, description = ?, is_critical = ?, updated_at = ?
		WHERE id = ? AND organization_id = ? AND deleted_at IS NULL`)
	res, err := conn.ExecContext(ctx, query,
		g.DisplayName, g.Description, g.IsCritical, g.UpdatedAt, g.ID, g.OrganizationID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// SoftDelete tombstones a live gateway. A missing or already deleted gateway
// yields sql.ErrNoRows.
func (r *GatewayRepository) SoftDelete(ctx context.Context, id, orgID string, at time.Time) error {
	conn := database.Conn(ctx, r.db)
	query := conn.Rebind(`UPDATE gateways SET deleted_at = ?
		WHERE id = ? AND organization_id = ? AND deleted_at IS NULL`)
	res, err := conn.ExecContext(ctx, query, at, id, orgID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// SetActive records the connection state of a live gateway and returns its
// organization. updated_at is left alone.
func (r *GatewayRepository) SetActive(ctx context.Context, id string, isActive bool) (string, error) {
	conn := database.Conn(ctx, r.db)
	query := conn.Rebind(`UPDATE gateways SET is_active = ?
		WHERE id = ? AND deleted_at IS NULL
		RETURNING organization_id`)
	var orgID string
	if err := conn.QueryRowxContext(ctx, query, isActive, id).Scan(&orgID); err != nil {
		return "", err
	}
	return orgID, nil
}

// ListStatus returns the status projection of an organization's live gateways.
// Only the four projected columns are read.
func (r *GatewayRepository) ListStatus(ctx context.Context, orgID string, gatewayID *string) ([]models.GatewayStatus, error) {
	conn := database.Conn(ctx, r.db)
	q := `SELECT id, name, is_active, is_critical FROM gateways
		WHERE organization_id = ? AND deleted_at IS NULL`
	args := []any{orgID}
	if gatewayID != nil {
		q += ` AND id = ?`
		args = append(args, *gatewayID)
	}
	q += ` ORDER BY created_at ASC, id ASC`

	var list []models.GatewayStatus
	if err := sqlx.SelectContext(ctx, conn, &list, conn.Rebind(q), args...); err != nil {
		return nil, err
	}
	return list, nil
}

func liveScope(orgID *string) (string, []any) {
	if orgID == nil {
		return ` WHERE deleted_at IS NULL`, nil
	}
	return ` WHERE organization_id = ? AND deleted_at IS NULL`, []any{*orgID}
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
