package models

// Identity is the read-only capability shared by core and tenant users.
// Authentication logic operates on this interface so the same code path
// serves both execution contexts.
type Identity interface {
	IdentityID() int64
	IdentityEmail() string
	IdentityPasswordHash() string
}
