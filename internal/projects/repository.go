package projects

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-saas/backend/internal/models"
)

// Repository handles project persistence. Every query is scoped to an
// organization id so rows never leak across tenants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a project repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a project into the organization.
func (r *Repository) Create(ctx context.Context, p *models.Project) error {
	const q = `INSERT INTO projects (id, organization_id, name, slug)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.OrganizationID, p.Name, p.Slug).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// List returns the organization's projects, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID) ([]models.Project, error) {
	const q = `SELECT id, organization_id, name, slug, created_at, updated_at
		FROM projects WHERE organization_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Slug, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// GetBySlug returns a project by slug within the organization, or nil when
// absent.
func (r *Repository) GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Project, error) {
	const q = `SELECT id, organization_id, name, slug, created_at, updated_at
		FROM projects WHERE organization_id = $1 AND slug = $2`
	var p models.Project
	err := r.pool.QueryRow(ctx, q, orgID, slug).
		Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Slug, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Count returns the number of projects in the organization.
func (r *Repository) Count(ctx context.Context, orgID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM projects WHERE organization_id = $1`
	var n int
	err := r.pool.QueryRow(ctx, q, orgID).Scan(&n)
	return n, err
}

// UpdateName renames a project. Returns the number of rows touched so the
// service can 404 on a slug that is not in the organization.
func (r *Repository) UpdateName(ctx context.Context, orgID uuid.UUID, slug, name string) (int64, error) {
	const q = `UPDATE projects SET name = $1, updated_at = NOW()
		WHERE organization_id = $2 AND slug = $3`
	tag, err := r.pool.Exec(ctx, q, name, orgID, slug)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a project by slug within the organization.
func (r *Repository) Delete(ctx context.Context, orgID uuid.UUID, slug string) (int64, error) {
	const q = `DELETE FROM projects WHERE organization_id = $1 AND slug = $2`
	tag, err := r.pool.Exec(ctx, q, orgID, slug)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
