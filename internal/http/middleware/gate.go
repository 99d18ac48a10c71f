package middleware

import (
	"context"
	"net/http"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/gate"
	"github.com/gin-gonic/gin"
)

// RetryAfterSeconds is sent with 503 responses when a lookup failed
// transiently.
const RetryAfterSeconds = "5"

// SessionResolver turns presented credentials into a session. Non-nil
// tokens mean the pair was rotated and must be sent back to the client.
// Implemented by *usecase.AuthUsecase.
type SessionResolver interface {
	ResolveSession(ctx context.Context, accessToken, refreshToken string) (*domain.Session, *domain.Tokens, error)
}

// Gate runs the access gate against the session carried in cookies. Rotated
// tokens are written to the response whatever the decision, unless the
// decision clears the session.
func Gate(ev *gate.Evaluator, sessions SessionResolver, cookies Cookies) gin.HandlerFunc {
	return func(c *gin.Context) {
		access, refresh := cookies.Read(c)

		var rotated *domain.Tokens
		src := gate.SessionSourceFunc(func(ctx context.Context) (*domain.Session, error) {
			sess, tokens, err := sessions.ResolveSession(ctx, access, refresh)
			rotated = tokens
			return sess, err
		})

		out := ev.Evaluate(c.Request.Context(), c.Request.URL.Path, src)
		d := out.Decision

		switch {
		case d.ClearSession:
			if access != "" || refresh != "" {
				cookies.Clear(c)
			}
		case rotated != nil:
			cookies.Set(c, rotated)
		}

		switch d.Action {
		case gate.ActionRedirect:
			c.Redirect(redirectStatus(c.Request.Method), d.Location())
			c.Abort()
		case gate.ActionRetry:
			c.Header("Retry-After", RetryAfterSeconds)
			c.AbortWithStatus(http.StatusServiceUnavailable)
		default:
			if out.Session != nil {
				setIdentity(c, out.Session, out.Role)
			}
			c.Next()
		}
	}
}

// GET and HEAD keep their method; a redirected form post must become a GET.
func redirectStatus(method string) int {
	if method == http.MethodGet || method == http.MethodHead {
		return http.StatusTemporaryRedirect
	}
	return http.StatusSeeOther
}
