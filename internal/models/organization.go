package models

import "time"

// Organization is a tenant-owning record in the core database. Its slug
// doubles as the tenant identifier from which the physical tenant database
// name is derived; once a tenant database has been provisioned for a slug,
// the slug is reserved forever.
type Organization struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description"`
	OwnerID     int64      `json:"owner_id"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}
