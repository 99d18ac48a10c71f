package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/gate"
	"github.com/gin-gonic/gin"
)

const errUnauthorized = "Unauthorized"

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// Bearer authenticates API calls with an access token. There is no
// transparent refresh: API clients call /api/auth/refresh themselves.
func Bearer(sessions SessionResolver, profiles gate.ProfileFinder, operatorEmail string, logger *slog.Logger) gin.HandlerFunc {
	unavailable := func(c *gin.Context, msg string, err error) {
		logger.WarnContext(c.Request.Context(), msg, "error", err)
		c.Header("Retry-After", RetryAfterSeconds)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
	}

	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		sess, _, err := sessions.ResolveSession(c.Request.Context(), token, "")
		if err != nil {
			if errors.Is(err, domain.ErrSessionInvalid) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
				return
			}
			unavailable(c, "bearer session lookup", err)
			return
		}
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		var persisted *domain.Role
		profile, err := profiles.GetByUserID(c.Request.Context(), sess.User.ID)
		switch {
		case err == nil:
			persisted = profile.Role
		case !errors.Is(err, domain.ErrProfileNotFound):
			unavailable(c, "bearer profile lookup", err)
			return
		}

		setIdentity(c, sess, gate.DeriveRole(sess.User.Email, persisted, operatorEmail))
		c.Next()
	}
}
