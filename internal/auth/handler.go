package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/tessera-saas/backend/internal/models"
	"github.com/tessera-saas/backend/internal/tenantdb"
	"github.com/tessera-saas/backend/pkg/response"
	"github.com/tessera-saas/backend/pkg/utils"
)

// TenantHeader selects the tenant database a request targets. Absent means
// the core database.
const TenantHeader = "X-TENANT"

// SessionResolver resolves the query surface for an execution context.
// Satisfied by *tenantdb.Sessions.
type SessionResolver interface {
	Core(ctx context.Context) (tenantdb.Querier, error)
	Tenant(ctx context.Context, slug string) (tenantdb.Querier, error)
}

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6"`
	FullName *string `json:"full_name"`
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the login response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Handler handles registration and login, routed to the core or a tenant
// database by the X-TENANT header.
type Handler struct {
	sessions    SessionResolver
	tokens      *TokenService
	coreUsers   CoreUserRepository
	tenantUsers TenantUserRepository
	logger      *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(sessions SessionResolver, tokens *TokenService, logger *zap.Logger) *Handler {
	return &Handler{sessions: sessions, tokens: tokens, logger: logger}
}

// Register handles POST /api/auth/register. Without X-TENANT it creates a
// core identity; with the header it creates an identity in that tenant's
// database.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	ctx := c.Request.Context()
	slug := c.GetHeader(TenantHeader)
	if slug == "" {
		db, err := h.sessions.Core(ctx)
		if err != nil {
			h.logger.Error("resolve core database", zap.Error(err))
			response.Internal(c, "Internal server error")
			return
		}
		user, err := h.coreUsers.Create(ctx, db, req.Email, hash, req.FullName)
		if err != nil {
			h.registerError(c, err)
			return
		}
		response.OK(c, user)
		return
	}

	db, err := h.sessions.Tenant(ctx, slug)
	if err != nil {
		h.logger.Error("resolve tenant database", zap.String("tenant", slug), zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	user, err := h.tenantUsers.Create(ctx, db, req.Email, hash, req.FullName)
	if err != nil {
		h.registerError(c, err)
		return
	}
	response.OK(c, user)
}

func (h *Handler) registerError(c *gin.Context, err error) {
	if errors.Is(err, ErrEmailTaken) {
		response.BadRequest(c, "Email already registered")
		return
	}
	h.logger.Error("create user", zap.Error(err))
	response.Internal(c, "Internal server error")
}

// Login handles POST /api/auth/login. The issued token is scoped to the
// execution context the credentials were verified against.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	slug := c.GetHeader(TenantHeader)

	var (
		identity models.Identity
		err      error
	)
	if slug == "" {
		var db tenantdb.Querier
		db, err = h.sessions.Core(ctx)
		if err == nil {
			var u *models.CoreUser
			u, err = h.coreUsers.GetByEmail(ctx, db, req.Email)
			if err == nil {
				identity = u
			}
		}
	} else {
		var db tenantdb.Querier
		db, err = h.sessions.Tenant(ctx, slug)
		if err == nil {
			var u *models.TenantUser
			u, err = h.tenantUsers.GetByEmail(ctx, db, req.Email)
			if err == nil {
				identity = u
			}
		}
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		h.logger.Error("authenticate", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	if identity == nil || !utils.CheckPassword(req.Password, identity.IdentityPasswordHash()) {
		response.Unauthorized(c, "Incorrect email or password")
		return
	}

	execContext := ContextCore
	if slug != "" {
		execContext = ContextTenant
	}
	token, err := h.tokens.Generate(identity.IdentityID(), execContext, slug)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	response.OK(c, TokenResponse{AccessToken: token, TokenType: "bearer"})
}
