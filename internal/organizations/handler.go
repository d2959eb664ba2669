package organizations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tessera-saas/backend/internal/middleware"
	"github.com/tessera-saas/backend/internal/models"
	"github.com/tessera-saas/backend/internal/tenantdb"
	"github.com/tessera-saas/backend/pkg/response"
)

// CreateRequest is the body for POST /api/organizations/.
type CreateRequest struct {
	Name        string  `json:"name" binding:"required"`
	Slug        string  `json:"slug" binding:"required"`
	Description *string `json:"description"`
}

// Handler handles organization HTTP endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Create handles POST /api/organizations/. Requires core authentication; the
// authenticated core user becomes the organization owner.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	owner := c.MustGet(middleware.ContextCoreUser).(*models.CoreUser)
	org, err := h.service.Create(c.Request.Context(), req.Name, req.Slug, req.Description, owner)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSlug):
			response.BadRequest(c, "Invalid slug format")
		case errors.Is(err, ErrSlugTaken):
			response.BadRequest(c, "Organization slug already exists")
		default:
			var provErr *tenantdb.ProvisioningError
			if errors.As(err, &provErr) {
				h.logger.Error("tenant provisioning failed", zap.Error(err))
			} else {
				h.logger.Error("create organization", zap.Error(err))
			}
			response.Internal(c, "Internal server error")
		}
		return
	}
	response.OK(c, org)
}
