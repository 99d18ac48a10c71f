package handler

import (
	"context"
	"net/http"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/gate"
	"github.com/ErlanBelekov/coach-portal/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

// GateHandler exposes the access gate to client-side routers, which hold
// the access token in memory and ask before each navigation.
type GateHandler struct {
	evaluator *gate.Evaluator
	sessions  middleware.SessionResolver
}

func NewGateHandler(evaluator *gate.Evaluator, sessions middleware.SessionResolver) *GateHandler {
	return &GateHandler{evaluator: evaluator, sessions: sessions}
}

type gateRequest struct {
	Path string `json:"path" binding:"required,startswith=/,max=2048"`
}

type gateResponse struct {
	Action       gate.Action `json:"action"`
	Location     string      `json:"location,omitempty"`
	ClearSession bool        `json:"clear_session"`
	Role         domain.Role `json:"role,omitempty"`
}

// POST /api/gate
// The optional bearer token is verified but never refreshed; an expired
// token yields clear_session and a login redirect, after which the client
// refreshes and asks again.
func (h *GateHandler) Evaluate(c *gin.Context) {
	var req gateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token := middleware.BearerToken(c)
	src := gate.SessionSourceFunc(func(ctx context.Context) (*domain.Session, error) {
		if token == "" {
			return nil, nil
		}
		sess, _, err := h.sessions.ResolveSession(ctx, token, "")
		return sess, err
	})

	out := h.evaluator.Evaluate(c.Request.Context(), req.Path, src)
	d := out.Decision
	if d.Action == gate.ActionRetry {
		c.Header("Retry-After", middleware.RetryAfterSeconds)
	}

	c.JSON(http.StatusOK, gateResponse{
		Action:       d.Action,
		Location:     d.Location(),
		ClearSession: d.ClearSession,
		Role:         out.Role,
	})
}

type meResponse struct {
	ID             string      `json:"id"`
	Email          string      `json:"email"`
	EmailConfirmed bool        `json:"email_confirmed"`
	Role           domain.Role `json:"role"`
}

// GET /api/me, behind middleware.Bearer.
func (h *GateHandler) Me(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
		return
	}
	c.JSON(http.StatusOK, meResponse{
		ID:             sess.User.ID,
		Email:          sess.User.Email,
		EmailConfirmed: sess.User.EmailConfirmed(),
		Role:           middleware.RoleFrom(c),
	})
}
