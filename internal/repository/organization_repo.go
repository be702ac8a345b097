package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_gateway/internal/database"
)

// OrganizationRepository reads the organizations table owned by the
// organization management service.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new OrganizationRepository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Exists reports whether an organization with the given id exists.
func (r *OrganizationRepository) Exists(ctx context.Context, id string) (bool, error) {
	conn := database.Conn(ctx, r.db)
	var n int
	query := conn.Rebind(`SELECT COUNT(*) FROM organizations WHERE id = ?`)
	if err := sqlx.GetContext(ctx, conn, &n, query, id); err != nil {
		return false, err
	}
	return n > 0, nil
}
