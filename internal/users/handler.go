package users

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tessera-saas/backend/internal/auth"
	"github.com/tessera-saas/backend/internal/middleware"
	"github.com/tessera-saas/backend/internal/models"
	"github.com/tessera-saas/backend/internal/tenantdb"
	"github.com/tessera-saas/backend/pkg/response"
)

// Handler serves the tenant-scoped profile endpoints. Both require tenant
// authentication with a matching X-TENANT header.
type Handler struct {
	repo   auth.TenantUserRepository
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// Me handles GET /api/users/me.
func (h *Handler) Me(c *gin.Context) {
	user := c.MustGet(middleware.ContextTenantUser).(*models.TenantUser)
	response.OK(c, user)
}

// decodeProfileUpdate reads the body keeping track of which fields were
// present, so an omitted field is left unchanged while an explicit null
// clears it.
func decodeProfileUpdate(r io.Reader) (auth.ProfileUpdate, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return auth.ProfileUpdate{}, err
	}

	var upd auth.ProfileUpdate
	for name, field := range map[string]*auth.OptionalString{
		"full_name": &upd.FullName,
		"bio":       &upd.Bio,
		"phone":     &upd.Phone,
	} {
		msg, ok := raw[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(msg, &field.Value); err != nil {
			return auth.ProfileUpdate{}, err
		}
		field.Set = true
	}
	return upd, nil
}

// UpdateMe handles PUT /api/users/me.
func (h *Handler) UpdateMe(c *gin.Context) {
	upd, err := decodeProfileUpdate(c.Request.Body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user := c.MustGet(middleware.ContextTenantUser).(*models.TenantUser)
	db := c.MustGet(middleware.ContextDB).(tenantdb.Querier)

	updated, err := h.repo.UpdateProfile(c.Request.Context(), db, user.ID, upd)
	if err != nil {
		h.logger.Error("update profile", zap.Int64("user_id", user.ID), zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	response.OK(c, updated)
}
