package organizations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tessera-saas/backend/internal/models"
)

// pgUniqueViolation is SQLSTATE 23505.
const pgUniqueViolation = "23505"

// Repository persists organization records in the core database.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository over the core pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SlugExists reports whether the slug is used by an organization or was ever
// provisioned as a tenant database. Provisioning is append-only, so a
// once-provisioned slug stays taken even after its organization is removed.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM organizations WHERE slug = $1)
		OR EXISTS (SELECT 1 FROM provisioned_tenants WHERE slug = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, slug).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Insert commits a new organization record. A unique violation on slug maps
// to ErrSlugTaken: the losing side of a concurrent create sees the same
// error as a plain duplicate.
func (r *Repository) Insert(ctx context.Context, org *models.Organization) error {
	const q = `INSERT INTO organizations (name, slug, description, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, org.Name, org.Slug, org.Description, org.OwnerID).
		Scan(&org.ID, &org.IsActive, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

// RecordProvisioned appends the slug to the provisioned-tenants ledger.
// Idempotent; rows are never deleted.
func (r *Repository) RecordProvisioned(ctx context.Context, slug string) error {
	const q = `INSERT INTO provisioned_tenants (slug) VALUES ($1)
		ON CONFLICT (slug) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, slug)
	return err
}

// GetBySlug returns an organization by slug, or pgx.ErrNoRows.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	const q = `SELECT id, name, slug, description, owner_id, is_active, created_at, updated_at
		FROM organizations WHERE slug = $1`
	var org models.Organization
	err := r.pool.QueryRow(ctx, q, slug).
		Scan(&org.ID, &org.Name, &org.Slug, &org.Description, &org.OwnerID, &org.IsActive, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &org, nil
}
