package middleware

import (
	"github.com/ErlanBelekov/coach-portal/internal/reqctx"
	"github.com/gin-gonic/gin"
)

const headerRequestID = "X-Request-ID"

// RequestID preserves an incoming X-Request-ID or generates a UUID v4, and
// stores it in the request context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 128 {
			id = reqctx.NewRequestID()
		}

		c.Request = c.Request.WithContext(reqctx.WithRequestID(c.Request.Context(), id))
		c.Header(headerRequestID, id)
		c.Next()
	}
}
