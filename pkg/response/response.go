package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Detail is the standard error payload: {"detail": "..."}.
type Detail struct {
	Detail string `json:"detail"`
}

// OK sends a 200 JSON response with the bare representation.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// BadRequest sends 400 with a detail message.
func BadRequest(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, Detail{Detail: detail})
}

// Unauthorized sends 401 with a detail message and the bearer challenge.
func Unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, Detail{Detail: detail})
}

// Forbidden sends 403 with a detail message.
func Forbidden(c *gin.Context, detail string) {
	c.JSON(http.StatusForbidden, Detail{Detail: detail})
}

// NotFound sends 404 with a detail message.
func NotFound(c *gin.Context, detail string) {
	c.JSON(http.StatusNotFound, Detail{Detail: detail})
}

// TooManyRequests sends 429 with a detail message.
func TooManyRequests(c *gin.Context, detail string) {
	c.JSON(http.StatusTooManyRequests, Detail{Detail: detail})
}

// Internal sends 500 with an opaque detail message.
func Internal(c *gin.Context, detail string) {
	c.JSON(http.StatusInternalServerError, Detail{Detail: detail})
}
