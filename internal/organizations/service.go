package organizations

import (
	"context"
	"errors"
	"regexp"

	"go.uber.org/zap"

	"github.com/tessera-saas/backend/internal/models"
)

var (
	// ErrInvalidSlug reports a slug that fails format validation.
	ErrInvalidSlug = errors.New("invalid slug format")
	// ErrSlugTaken reports a slug already used by an organization or ever
	// provisioned as a tenant database.
	ErrSlugTaken = errors.New("organization slug already exists")
)

// slugPattern: lowercase alphanumerics and hyphens, starting and ending with
// an alphanumeric. The pattern itself forces length >= 2.
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

// ValidateSlug reports whether s is a legal organization slug.
func ValidateSlug(s string) bool {
	return len(s) >= 2 && slugPattern.MatchString(s)
}

// Store persists organization records in the core database.
type Store interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
	Insert(ctx context.Context, org *models.Organization) error
	RecordProvisioned(ctx context.Context, slug string) error
}

// Provisioner creates tenant databases and schema. Satisfied by
// *tenantdb.Provisioner.
type Provisioner interface {
	EnsureDatabase(ctx context.Context, slug string) error
	EnsureSchema(ctx context.Context, slug string) error
}

// TenantUsers replicates identities into a tenant database.
type TenantUsers interface {
	ExistsByEmail(ctx context.Context, slug, email string) (bool, error)
	CreateFromOwner(ctx context.Context, slug string, owner *models.CoreUser) error
}

// Service orchestrates organization creation: core record, tenant database
// provisioning, and owner replication. The steps span two databases with no
// cross-database transaction, so they run as a saga of idempotent steps; a
// failure after the core insert leaves the organization record committed
// with no usable tenant database, to be reconciled out of band.
type Service struct {
	store       Store
	provisioner Provisioner
	tenantUsers TenantUsers
	logger      *zap.Logger
}

// NewService creates an organization service.
func NewService(store Store, provisioner Provisioner, tenantUsers TenantUsers, logger *zap.Logger) *Service {
	return &Service{store: store, provisioner: provisioner, tenantUsers: tenantUsers, logger: logger}
}

// Create validates the slug, commits the organization record, provisions the
// tenant database and schema, and replicates the owner identity into the new
// tenant so the owner can authenticate there immediately.
func (s *Service) Create(ctx context.Context, name, slug string, description *string, owner *models.CoreUser) (*models.Organization, error) {
	if !ValidateSlug(slug) {
		return nil, ErrInvalidSlug
	}

	taken, err := s.store.SlugExists(ctx, slug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlugTaken
	}

	// The check above is racy; the unique constraint on organizations.slug
	// is the final arbiter, and the store maps its violation to ErrSlugTaken.
	org := &models.Organization{
		Name:        name,
		Slug:        slug,
		Description: description,
		OwnerID:     owner.ID,
	}
	if err := s.store.Insert(ctx, org); err != nil {
		return nil, err
	}

	if err := s.provisioner.EnsureDatabase(ctx, slug); err != nil {
		s.logger.Error("tenant database provisioning failed after core insert",
			zap.String("slug", slug), zap.Error(err))
		return nil, err
	}
	if err := s.provisioner.EnsureSchema(ctx, slug); err != nil {
		s.logger.Error("tenant schema provisioning failed after core insert",
			zap.String("slug", slug), zap.Error(err))
		return nil, err
	}
	// Reserve the slug forever: rows in provisioned_tenants are never
	// deleted, even if the organization record is.
	if err := s.store.RecordProvisioned(ctx, slug); err != nil {
		return nil, err
	}

	if err := s.replicateOwner(ctx, slug, owner); err != nil {
		return nil, err
	}
	return org, nil
}

// replicateOwner copies the owner identity (same email and password hash)
// into the tenant database, skipping when the email already exists there.
func (s *Service) replicateOwner(ctx context.Context, slug string, owner *models.CoreUser) error {
	exists, err := s.tenantUsers.ExistsByEmail(ctx, slug, owner.Email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.tenantUsers.CreateFromOwner(ctx, slug, owner)
}
