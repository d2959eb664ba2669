package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tessera-saas/backend/internal/models"
	"github.com/tessera-saas/backend/internal/tenantdb"
)

// ErrEmailTaken reports a duplicate email within one database.
var ErrEmailTaken = errors.New("email already registered")

// pgUniqueViolation is SQLSTATE 23505.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// CoreUserRepository persists identities in the core database. The target
// database is routed per request, so methods take the Querier explicitly
// instead of holding a pool.
type CoreUserRepository struct{}

// Create inserts a new core user. The unique constraint on email is the
// final arbiter for concurrent registrations; a violation maps to
// ErrEmailTaken.
func (CoreUserRepository) Create(ctx context.Context, db tenantdb.Querier, email, passwordHash string, fullName *string) (*models.CoreUser, error) {
	const q = `INSERT INTO core_users (email, password_hash, full_name)
		VALUES ($1, $2, $3)
		RETURNING id, email, password_hash, full_name, is_active, created_at, updated_at`
	var u models.CoreUser
	err := db.QueryRow(ctx, q, email, passwordHash, fullName).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a core user by email, or pgx.ErrNoRows.
func (CoreUserRepository) GetByEmail(ctx context.Context, db tenantdb.Querier, email string) (*models.CoreUser, error) {
	const q = `SELECT id, email, password_hash, full_name, is_active, created_at, updated_at
		FROM core_users WHERE email = $1`
	var u models.CoreUser
	err := db.QueryRow(ctx, q, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a core user by id, or pgx.ErrNoRows.
func (CoreUserRepository) GetByID(ctx context.Context, db tenantdb.Querier, id int64) (*models.CoreUser, error) {
	const q = `SELECT id, email, password_hash, full_name, is_active, created_at, updated_at
		FROM core_users WHERE id = $1`
	var u models.CoreUser
	err := db.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// TenantUserRepository persists identities in a tenant database. Identical
// logic shape to CoreUserRepository; the extra profile fields exist only on
// the tenant variant.
type TenantUserRepository struct{}

// Create inserts a new tenant user; duplicate email maps to ErrEmailTaken.
func (TenantUserRepository) Create(ctx context.Context, db tenantdb.Querier, email, passwordHash string, fullName *string) (*models.TenantUser, error) {
	const q = `INSERT INTO tenant_users (email, password_hash, full_name)
		VALUES ($1, $2, $3)
		RETURNING id, email, password_hash, full_name, bio, phone, is_active, created_at, updated_at`
	var u models.TenantUser
	err := db.QueryRow(ctx, q, email, passwordHash, fullName).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Bio, &u.Phone, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a tenant user by email, or pgx.ErrNoRows.
func (TenantUserRepository) GetByEmail(ctx context.Context, db tenantdb.Querier, email string) (*models.TenantUser, error) {
	const q = `SELECT id, email, password_hash, full_name, bio, phone, is_active, created_at, updated_at
		FROM tenant_users WHERE email = $1`
	var u models.TenantUser
	err := db.QueryRow(ctx, q, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Bio, &u.Phone, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a tenant user by id, or pgx.ErrNoRows.
func (TenantUserRepository) GetByID(ctx context.Context, db tenantdb.Querier, id int64) (*models.TenantUser, error) {
	const q = `SELECT id, email, password_hash, full_name, bio, phone, is_active, created_at, updated_at
		FROM tenant_users WHERE id = $1`
	var u models.TenantUser
	err := db.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Bio, &u.Phone, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// OptionalString distinguishes a field the client omitted from one set to
// null. Only fields with Set true are written.
type OptionalString struct {
	Set   bool
	Value *string
}

// ProfileUpdate is a partial update of the mutable tenant profile fields.
type ProfileUpdate struct {
	FullName OptionalString
	Bio      OptionalString
	Phone    OptionalString
}

// UpdateProfile applies a partial update. Omitted fields keep their current
// value; a field set to null is cleared.
func (TenantUserRepository) UpdateProfile(ctx context.Context, db tenantdb.Querier, id int64, upd ProfileUpdate) (*models.TenantUser, error) {
	const q = `UPDATE tenant_users SET
			full_name = CASE WHEN $2 THEN $3::text ELSE full_name END,
			bio       = CASE WHEN $4 THEN $5::text ELSE bio END,
			phone     = CASE WHEN $6 THEN $7::text ELSE phone END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, password_hash, full_name, bio, phone, is_active, created_at, updated_at`
	var u models.TenantUser
	err := db.QueryRow(ctx, q, id,
		upd.FullName.Set, upd.FullName.Value,
		upd.Bio.Set, upd.Bio.Value,
		upd.Phone.Set, upd.Phone.Value).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Bio, &u.Phone, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
