package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type rosterUsecaser interface {
	ListClients(ctx context.Context) ([]*domain.ClientSummary, error)
	ClientCheckIns(ctx context.Context, clientID string, days int) (*domain.User, []*domain.CheckIn, error)
}

type CoachHandler struct {
	roster rosterUsecaser
	logger *slog.Logger
}

func NewCoachHandler(roster rosterUsecaser, logger *slog.Logger) *CoachHandler {
	return &CoachHandler{roster: roster, logger: logger.With("component", "coach_handler")}
}

type rosterData struct {
	Clients []*domain.ClientSummary
}

type clientCheckInsData struct {
	Client   *domain.User
	CheckIns []*domain.CheckIn
}

// GET /coach/dashboard
func (h *CoachHandler) Dashboard(c *gin.Context) {
	clients, err := h.roster.ListClients(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list clients", "error", err)
		render(c, http.StatusInternalServerError, "error.html", page{Title: errInternalServer})
		return
	}
	render(c, http.StatusOK, "coach_dashboard.html", page{Title: "Clients", Data: rosterData{Clients: clients}})
}

// GET /coach/clients/:id/checkins?days=<n>
func (h *CoachHandler) ClientCheckIns(c *gin.Context) {
	clientID := c.Param("id")
	if _, err := uuid.Parse(clientID); err != nil {
		render(c, http.StatusNotFound, "error.html", page{Title: errClientNotFound})
		return
	}
	days, _ := strconv.Atoi(c.Query("days"))

	client, history, err := h.roster.ClientCheckIns(c.Request.Context(), clientID, days)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			render(c, http.StatusNotFound, "error.html", page{Title: errClientNotFound})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "client check-ins", "client_id", clientID, "error", err)
		render(c, http.StatusInternalServerError, "error.html", page{Title: errInternalServer})
		return
	}
	render(c, http.StatusOK, "client_checkins.html", page{
		Title: client.Email,
		Data:  clientCheckInsData{Client: client, CheckIns: history},
	})
}
