package tenantdb

import "context"

// Sessions adapts the Registry for consumers that want a query surface per
// execution context rather than a concrete pool.
type Sessions struct {
	registry *Registry
}

// NewSessions wraps a registry.
func NewSessions(registry *Registry) *Sessions {
	return &Sessions{registry: registry}
}

// Core returns the query surface for the core database.
func (s *Sessions) Core(ctx context.Context) (Querier, error) {
	return s.registry.Core(ctx)
}

// Tenant returns the query surface for the given tenant.
func (s *Sessions) Tenant(ctx context.Context, slug string) (Querier, error) {
	return s.registry.Tenant(ctx, slug)
}
