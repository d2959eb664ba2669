package tenantdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/tessera-saas/backend/pkg/database"
)

// pgDuplicateDatabase is SQLSTATE 42P04, raised by CREATE DATABASE when the
// database already exists.
const pgDuplicateDatabase = "42P04"

// ProvisioningError reports a failed tenant database or schema creation.
type ProvisioningError struct {
	Slug string
	Op   string // "create database" or "create schema"
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provision tenant %q: %s: %v", e.Slug, e.Op, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Provisioner creates tenant databases and their schema using administrative
// credentials. It never goes through the Registry: provisioning must work
// before the tenant database is reachable by the application role.
type Provisioner struct {
	adminDSN      string
	maintenanceDB string
	prefix        string
	logger        *zap.Logger

	// connect is swapped out in tests.
	connect func(ctx context.Context, dsn, db string) (adminConn, error)
}

type adminConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close(ctx context.Context) error
}

// NewProvisioner creates a provisioner. adminDSN must carry a role allowed
// to CREATE DATABASE; maintenanceDB is the database to connect to for
// database creation (usually "postgres").
func NewProvisioner(adminDSN, maintenanceDB, prefix string, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		adminDSN:      adminDSN,
		maintenanceDB: maintenanceDB,
		prefix:        prefix,
		logger:        logger,
		connect:       connectAdmin,
	}
}

func connectAdmin(ctx context.Context, dsn, db string) (adminConn, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse admin config: %w", err)
	}
	if db != "" {
		cfg.Database = db
	}
	return pgx.ConnectConfig(ctx, cfg)
}

// EnsureDatabase creates the tenant's physical database if missing.
// Succeeds silently when the database already exists; any other failure is a
// *ProvisioningError.
func (p *Provisioner) EnsureDatabase(ctx context.Context, slug string) error {
	conn, err := p.connect(ctx, p.adminDSN, p.maintenanceDB)
	if err != nil {
		return &ProvisioningError{Slug: slug, Op: "create database", Err: err}
	}
	defer conn.Close(ctx)

	dbName := p.prefix + slug
	// CREATE DATABASE cannot be parameterized; dbName is derived from a slug
	// validated upstream and quoted as an identifier here.
	_, err = conn.Exec(ctx, fmt.Sprintf(`CREATE DATABASE %s`, pgx.Identifier{dbName}.Sanitize()))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateDatabase {
			return nil
		}
		return &ProvisioningError{Slug: slug, Op: "create database", Err: err}
	}
	p.logger.Info("tenant database created", zap.String("database", dbName))
	return nil
}

// EnsureSchema applies the tenant schema to an existing tenant database.
// Idempotent: safe to call on an already-schematized database.
func (p *Provisioner) EnsureSchema(ctx context.Context, slug string) error {
	conn, err := p.connect(ctx, p.adminDSN, p.prefix+slug)
	if err != nil {
		return &ProvisioningError{Slug: slug, Op: "create schema", Err: err}
	}
	defer conn.Close(ctx)

	if err := database.MigrateTenant(ctx, conn); err != nil {
		return &ProvisioningError{Slug: slug, Op: "create schema", Err: err}
	}
	return nil
}
