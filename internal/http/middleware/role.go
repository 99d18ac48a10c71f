package middleware

import (
	"net/http"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/gin-gonic/gin"
)

// RequireRole runs after Gate or Bearer and rejects callers of another role.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if RoleFrom(c) != role {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
