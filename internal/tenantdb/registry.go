package tenantdb

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tessera-saas/backend/pkg/database"
)

// coreKey is the cache key for the shared core database.
const coreKey = "core"

// Registry owns the mapping from tenant identifier to connection pool. Pools
// are built lazily on first reference and kept for the process lifetime; no
// eviction. An explicit, injectable object rather than a package-level
// singleton so wiring and tests stay honest.
type Registry struct {
	coreDSN string
	prefix  string
	logger  *zap.Logger

	mu    sync.RWMutex
	pools map[string]*pgxpool.Pool
	group singleflight.Group

	// newPool is swapped out in tests.
	newPool func(ctx context.Context, dsn, db string, logger *zap.Logger) (*pgxpool.Pool, error)
}

// NewRegistry creates a registry. coreDSN is the DSN of the core database;
// tenant pools reuse its host and credentials with the database swapped to
// prefix+slug.
func NewRegistry(coreDSN, prefix string, logger *zap.Logger) *Registry {
	return &Registry{
		coreDSN: coreDSN,
		prefix:  prefix,
		logger:  logger,
		pools:   make(map[string]*pgxpool.Pool),
		newPool: database.NewPool,
	}
}

// DatabaseName derives the physical database name for a tenant identifier.
// The fixed prefix keeps tenant databases in their own namespace, so a slug
// can never collide with the core or maintenance databases.
func (r *Registry) DatabaseName(slug string) string {
	return r.prefix + slug
}

// Core returns the pool for the core database, building it on first call.
func (r *Registry) Core(ctx context.Context) (*pgxpool.Pool, error) {
	return r.pool(ctx, coreKey, "")
}

// Tenant returns the pool for the given tenant identifier, building it on
// first call. The identifier is treated as opaque; validation happens before
// it ever reaches the registry.
func (r *Registry) Tenant(ctx context.Context, slug string) (*pgxpool.Pool, error) {
	return r.pool(ctx, slug, r.DatabaseName(slug))
}

// pool is an initialize-once lookup: concurrent first access for the same
// key builds exactly one pool, and every caller observes that instance.
func (r *Registry) pool(ctx context.Context, key, database string) (*pgxpool.Pool, error) {
	r.mu.RLock()
	p := r.pools[key]
	r.mu.RUnlock()
	if p != nil {
		return p, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		r.mu.RLock()
		p := r.pools[key]
		r.mu.RUnlock()
		if p != nil {
			return p, nil
		}
		p, err := r.newPool(ctx, r.coreDSN, database, r.logger)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.pools[key] = p
		r.mu.Unlock()
		r.logger.Info("database pool cached", zap.String("key", key))
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pgxpool.Pool), nil
}

// Close closes every cached pool. Called once at shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, p := range r.pools {
		p.Close()
		delete(r.pools, key)
	}
}
