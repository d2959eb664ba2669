package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tessera-saas/backend/internal/auth"
	"github.com/tessera-saas/backend/internal/models"
	"github.com/tessera-saas/backend/internal/tenantdb"
	"github.com/tessera-saas/backend/pkg/response"
)

// Gin context keys set by the routing middleware.
const (
	// ContextDB is the pool for the request's confirmed execution context.
	ContextDB = "db"
	// ContextClaims holds the verified *auth.Claims.
	ContextClaims = "claims"
	// ContextCoreUser holds the authenticated *models.CoreUser.
	ContextCoreUser = "core_user"
	// ContextTenantUser holds the authenticated *models.TenantUser.
	ContextTenantUser = "tenant_user"
	// ContextTenantSlug holds the confirmed tenant identifier.
	ContextTenantSlug = "tenant_slug"
)

// PoolResolver resolves the database pool for an execution context.
// Satisfied by *tenantdb.Registry.
type PoolResolver interface {
	Core(ctx context.Context) (*pgxpool.Pool, error)
	Tenant(ctx context.Context, slug string) (*pgxpool.Pool, error)
}

// CoreUserLoader and TenantUserLoader fetch the authenticated user from the
// resolved database. auth.CoreUserRepository.GetByID and
// auth.TenantUserRepository.GetByID satisfy them as method values.
type (
	CoreUserLoader   func(ctx context.Context, db tenantdb.Querier, id int64) (*models.CoreUser, error)
	TenantUserLoader func(ctx context.Context, db tenantdb.Querier, id int64) (*models.TenantUser, error)
)

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireCoreAuth admits only requests carrying a valid core-scoped token
// and no tenant selector. A structurally valid token with the wrong scope is
// Forbidden, not Unauthenticated.
func RequireCoreAuth(tokens *auth.TokenService, dbs PoolResolver, load CoreUserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Could not validate credentials")
			c.Abort()
			return
		}
		claims, err := tokens.Validate(token)
		if err != nil {
			response.Unauthorized(c, "Could not validate credentials")
			c.Abort()
			return
		}
		// A tenant selector makes the candidate context tenant(x); a core
		// token never matches it.
		if claims.Context != auth.ContextCore || c.GetHeader(auth.TenantHeader) != "" {
			response.Forbidden(c, "Core authentication required")
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		db, err := dbs.Core(ctx)
		if err != nil {
			response.Internal(c, "Internal server error")
			c.Abort()
			return
		}
		user, err := load(ctx, db, claims.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				response.NotFound(c, "User not found")
			} else {
				response.Internal(c, "Internal server error")
			}
			c.Abort()
			return
		}

		c.Set(ContextDB, db)
		c.Set(ContextClaims, claims)
		c.Set(ContextCoreUser, user)
		c.Next()
	}
}

// RequireTenantAuth admits only requests whose tenant selector matches the
// tenant the bearer token is scoped to. A missing selector is rejected
// before any token verification: there is no context to verify against.
func RequireTenantAuth(tokens *auth.TokenService, dbs PoolResolver, load TenantUserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.GetHeader(auth.TenantHeader)
		if slug == "" {
			response.BadRequest(c, "X-TENANT header is required")
			c.Abort()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Could not validate credentials")
			c.Abort()
			return
		}
		claims, err := tokens.Validate(token)
		if err != nil {
			response.Unauthorized(c, "Could not validate credentials")
			c.Abort()
			return
		}
		if claims.Context != auth.ContextTenant || claims.Tenant != slug {
			response.Forbidden(c, "Tenant authentication required for this tenant")
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		db, err := dbs.Tenant(ctx, slug)
		if err != nil {
			response.Internal(c, "Internal server error")
			c.Abort()
			return
		}
		user, err := load(ctx, db, claims.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				response.NotFound(c, "User not found")
			} else {
				response.Internal(c, "Internal server error")
			}
			c.Abort()
			return
		}

		c.Set(ContextDB, db)
		c.Set(ContextClaims, claims)
		c.Set(ContextTenantUser, user)
		c.Set(ContextTenantSlug, slug)
		c.Next()
	}
}
