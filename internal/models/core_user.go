package models

import "time"

// CoreUser is an identity stored in the shared core database.
type CoreUser struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     *string    `json:"full_name"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func (u *CoreUser) IdentityID() int64            { return u.ID }
func (u *CoreUser) IdentityEmail() string        { return u.Email }
func (u *CoreUser) IdentityPasswordHash() string { return u.PasswordHash }
