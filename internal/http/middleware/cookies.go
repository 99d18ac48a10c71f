package middleware

import (
	"net/http"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "cp-access-token"
	RefreshCookie = "cp-refresh-token"
)

// Cookies writes the session token pair as HttpOnly, SameSite=Lax cookies.
type Cookies struct {
	Domain string
	Secure bool
	now    func() time.Time
}

func NewCookies(domainName string, secure bool) Cookies {
	return Cookies{Domain: domainName, Secure: secure, now: time.Now}
}

// Read returns the presented token pair; missing cookies yield "".
func (k Cookies) Read(c *gin.Context) (access, refresh string) {
	access, _ = c.Cookie(AccessCookie)
	refresh, _ = c.Cookie(RefreshCookie)
	return access, refresh
}

func (k Cookies) Set(c *gin.Context, t *domain.Tokens) {
	now := time.Now()
	if k.now != nil {
		now = k.now()
	}
	k.write(c, AccessCookie, t.AccessToken, maxAge(t.AccessExpiresAt, now))
	k.write(c, RefreshCookie, t.RefreshToken, maxAge(t.RefreshExpiresAt, now))
}

func (k Cookies) Clear(c *gin.Context) {
	k.write(c, AccessCookie, "", -1)
	k.write(c, RefreshCookie, "", -1)
}

func (k Cookies) write(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", k.Domain, k.Secure, true)
}

func maxAge(exp, now time.Time) int {
	secs := int(exp.Sub(now) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
