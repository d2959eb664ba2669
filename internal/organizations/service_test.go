package organizations

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tessera-saas/backend/internal/models"
	"github.com/tessera-saas/backend/internal/tenantdb"
)

func TestValidateSlug(t *testing.T) {
	cases := []struct {
		slug string
		want bool
	}{
		{"test-org", true},
		{"acme", true},
		{"a1", true},
		{"a--b", true},
		{"0rg-2", true},
		{"t", false},
		{"", false},
		{"-test", false},
		{"test-", false},
		{"Test-Org", false},
		{"my org", false},
		{"under_score", false},
		{"dots.org", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ValidateSlug(tc.slug), "slug %q", tc.slug)
	}
}

type fakeStore struct {
	mu          sync.Mutex
	slugs       map[string]bool
	provisioned map[string]bool
	nextID      int64

	slugExistsErr error
	recordErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{slugs: make(map[string]bool), provisioned: make(map[string]bool)}
}

func (s *fakeStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slugExistsErr != nil {
		return false, s.slugExistsErr
	}
	return s.slugs[slug] || s.provisioned[slug], nil
}

// Insert emulates the unique constraint on slug: the second insert for the
// same slug loses, exactly like the losing side of the storage-level race.
func (s *fakeStore) Insert(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slugs[org.Slug] {
		return ErrSlugTaken
	}
	s.slugs[org.Slug] = true
	s.nextID++
	org.ID = s.nextID
	org.IsActive = true
	return nil
}

func (s *fakeStore) RecordProvisioned(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return s.recordErr
	}
	s.provisioned[slug] = true
	return nil
}

type fakeProvisioner struct {
	mu        sync.Mutex
	databases []string
	schemas   []string
	dbErr     error
	schemaErr error
}

func (p *fakeProvisioner) EnsureDatabase(ctx context.Context, slug string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dbErr != nil {
		return p.dbErr
	}
	p.databases = append(p.databases, slug)
	return nil
}

func (p *fakeProvisioner) EnsureSchema(ctx context.Context, slug string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.schemaErr != nil {
		return p.schemaErr
	}
	p.schemas = append(p.schemas, slug)
	return nil
}

type fakeTenantUsers struct {
	mu       sync.Mutex
	existing map[string]bool // email -> present in tenant
	created  []string
}

func (t *fakeTenantUsers) ExistsByEmail(ctx context.Context, slug, email string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.existing[email], nil
}

func (t *fakeTenantUsers) CreateFromOwner(ctx context.Context, slug string, owner *models.CoreUser) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.created = append(t.created, owner.Email)
	return nil
}

func newTestService() (*Service, *fakeStore, *fakeProvisioner, *fakeTenantUsers) {
	store := newFakeStore()
	prov := &fakeProvisioner{}
	tenants := &fakeTenantUsers{existing: make(map[string]bool)}
	svc := NewService(store, prov, tenants, zap.NewNop())
	return svc, store, prov, tenants
}

func testOwner() *models.CoreUser {
	return &models.CoreUser{ID: 1, Email: "owner@example.com", PasswordHash: "$2a$10$hash"}
}

func TestCreateOrganization(t *testing.T) {
	svc, store, prov, tenants := newTestService()

	org, err := svc.Create(context.Background(), "Acme Inc", "acme", nil, testOwner())
	require.NoError(t, err)
	assert.Equal(t, "acme", org.Slug)
	assert.Equal(t, int64(1), org.OwnerID)
	assert.NotZero(t, org.ID)

	assert.Equal(t, []string{"acme"}, prov.databases)
	assert.Equal(t, []string{"acme"}, prov.schemas)
	assert.True(t, store.provisioned["acme"])
	assert.Equal(t, []string{"owner@example.com"}, tenants.created)
}

func TestCreateOrganizationInvalidSlug(t *testing.T) {
	svc, store, _, _ := newTestService()

	for _, slug := range []string{"T", "-bad", "Bad-Slug", "x"} {
		_, err := svc.Create(context.Background(), "Org", slug, nil, testOwner())
		assert.ErrorIs(t, err, ErrInvalidSlug, "slug %q", slug)
	}
	assert.Empty(t, store.slugs)
}

func TestCreateOrganizationSlugTaken(t *testing.T) {
	svc, store, _, _ := newTestService()
	store.slugs["acme"] = true

	_, err := svc.Create(context.Background(), "Org", "acme", nil, testOwner())
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestCreateOrganizationProvisionedSlugStaysReserved(t *testing.T) {
	// A provisioned slug is reserved forever, even without an organization
	// row for it.
	svc, store, _, _ := newTestService()
	store.provisioned["ghost"] = true

	_, err := svc.Create(context.Background(), "Org", "ghost", nil, testOwner())
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestCreateOrganizationProvisioningFailureLeavesCoreRecord(t *testing.T) {
	svc, store, prov, tenants := newTestService()
	provErr := &tenantdb.ProvisioningError{Slug: "acme", Op: "create database", Err: assert.AnError}
	prov.dbErr = provErr

	_, err := svc.Create(context.Background(), "Org", "acme", nil, testOwner())

	var pe *tenantdb.ProvisioningError
	require.ErrorAs(t, err, &pe)
	// The core insert is not rolled back: documented inconsistency window.
	assert.True(t, store.slugs["acme"])
	assert.False(t, store.provisioned["acme"])
	assert.Empty(t, tenants.created)
}

func TestCreateOrganizationOwnerAlreadyInTenant(t *testing.T) {
	svc, _, _, tenants := newTestService()
	tenants.existing["owner@example.com"] = true

	_, err := svc.Create(context.Background(), "Org", "acme", nil, testOwner())
	require.NoError(t, err)
	assert.Empty(t, tenants.created)
}

func TestCreateOrganizationConcurrentSameSlug(t *testing.T) {
	svc, _, prov, _ := newTestService()

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), "Org", "acme", nil, testOwner())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, taken int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrSlugTaken):
			taken++
		}
	}
	assert.Equal(t, 1, ok, "exactly one create wins")
	assert.Equal(t, n-1, taken)
	assert.Equal(t, []string{"acme"}, prov.databases, "no double provisioning")
}
