package middleware

import (
	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/reqctx"
	"github.com/gin-gonic/gin"
)

const (
	keySession = "session"
	keyRole    = "role"
)

func setIdentity(c *gin.Context, sess *domain.Session, role domain.Role) {
	c.Set(keySession, sess)
	c.Set(keyRole, role)
	c.Request = c.Request.WithContext(reqctx.WithUserID(c.Request.Context(), sess.User.ID))
}

// SessionFrom returns the session stored by Gate or Bearer, or nil.
func SessionFrom(c *gin.Context) *domain.Session {
	v, ok := c.Get(keySession)
	if !ok {
		return nil
	}
	sess, _ := v.(*domain.Session)
	return sess
}

// RoleFrom returns "" when no session was resolved.
func RoleFrom(c *gin.Context) domain.Role {
	v, ok := c.Get(keyRole)
	if !ok {
		return ""
	}
	role, _ := v.(domain.Role)
	return role
}
