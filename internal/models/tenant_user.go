package models

import "time"

// TenantUser is an identity stored in a per-tenant database. Same shape as
// CoreUser plus profile fields; the two never share a primary-key space.
type TenantUser struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     *string    `json:"full_name"`
	Bio          *string    `json:"bio"`
	Phone        *string    `json:"phone"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func (u *TenantUser) IdentityID() int64            { return u.ID }
func (u *TenantUser) IdentityEmail() string        { return u.Email }
func (u *TenantUser) IdentityPasswordHash() string { return u.PasswordHash }
