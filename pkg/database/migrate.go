package database

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/core/*.sql migrations/tenant/*.sql
var migrationsFS embed.FS

// Executor is the minimal surface migrations need; satisfied by
// *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// MigrateCore applies the core database schema in order (001_..., 002_...).
func MigrateCore(ctx context.Context, db Executor) error {
	return applyDir(ctx, db, "migrations/core")
}

// MigrateTenant applies the per-tenant schema to an already-created tenant
// database. Statements are idempotent, so calling it on a schematized
// database is a no-op.
func MigrateTenant(ctx context.Context, db Executor) error {
	return applyDir(ctx, db, "migrations/tenant")
}

func applyDir(ctx context.Context, db Executor, dir string) error {
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrationsFS.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err = db.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
	}
	return nil
}
