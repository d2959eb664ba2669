package organizations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tessera-saas/backend/internal/auth"
	"github.com/tessera-saas/backend/internal/models"
	"github.com/tessera-saas/backend/internal/tenantdb"
)

// RegistryTenantUsers implements TenantUsers over the tenant registry and
// the tenant user repository. Owner replication reuses the same email plus
// password hash, so the owner can log in to the new tenant immediately.
type RegistryTenantUsers struct {
	registry *tenantdb.Registry
	users    auth.TenantUserRepository
}

// NewRegistryTenantUsers creates the production TenantUsers implementation.
func NewRegistryTenantUsers(registry *tenantdb.Registry) *RegistryTenantUsers {
	return &RegistryTenantUsers{registry: registry}
}

// ExistsByEmail reports whether an identity with the email exists in the
// tenant database.
func (t *RegistryTenantUsers) ExistsByEmail(ctx context.Context, slug, email string) (bool, error) {
	db, err := t.registry.Tenant(ctx, slug)
	if err != nil {
		return false, err
	}
	_, err = t.users.GetByEmail(ctx, db, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateFromOwner inserts the owner as a tenant identity with the same
// email and password hash.
func (t *RegistryTenantUsers) CreateFromOwner(ctx context.Context, slug string, owner *models.CoreUser) error {
	db, err := t.registry.Tenant(ctx, slug)
	if err != nil {
		return err
	}
	_, err = t.users.Create(ctx, db, owner.Email, owner.PasswordHash, owner.FullName)
	if errors.Is(err, auth.ErrEmailTaken) {
		// Lost a race with a concurrent replication; the identity is there.
		return nil
	}
	return err
}
