package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/http/middleware"
	"github.com/ErlanBelekov/coach-portal/internal/usecase"
	"github.com/gin-gonic/gin"
)

type checkInUsecaser interface {
	Upsert(ctx context.Context, input usecase.UpsertCheckInInput) (*domain.CheckIn, error)
	List(ctx context.Context, userID string, days int) ([]*domain.CheckIn, error)
}

type ClientHandler struct {
	profiles onboardingUsecaser
	checkins checkInUsecaser
	logger   *slog.Logger
}

func NewClientHandler(profiles onboardingUsecaser, checkins checkInUsecaser, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{
		profiles: profiles,
		checkins: checkins,
		logger:   logger.With("component", "client_handler"),
	}
}

type dashboardData struct {
	Profile  *domain.Profile
	CheckIns []*domain.CheckIn
}

type checkInsData struct {
	CheckIns []*domain.CheckIn
}

// GET /client/dashboard
func (h *ClientHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.SessionFrom(c).User.ID

	profile, err := h.profiles.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		h.logger.ErrorContext(ctx, "get profile", "error", err)
		render(c, http.StatusInternalServerError, "error.html", page{Title: errInternalServer})
		return
	}
	if profile == nil {
		profile = &domain.Profile{UserID: userID}
	}

	recent, err := h.checkins.List(ctx, userID, 7)
	if err != nil {
		h.logger.ErrorContext(ctx, "list check-ins", "error", err)
		render(c, http.StatusInternalServerError, "error.html", page{Title: errInternalServer})
		return
	}

	render(c, http.StatusOK, "client_dashboard.html", page{
		Title: "Dashboard",
		Data:  dashboardData{Profile: profile, CheckIns: recent},
	})
}

// GET /client/checkins?days=<n>
func (h *ClientHandler) CheckIns(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	h.renderCheckIns(c, http.StatusOK, days, "", "")
}

// POST /client/checkins
func (h *ClientHandler) SaveCheckIn(c *gin.Context) {
	input, err := checkInFromForm(c)
	if err == nil {
		input.UserID = middleware.SessionFrom(c).User.ID
		_, err = h.checkins.Upsert(c.Request.Context(), input)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			h.renderCheckIns(c, http.StatusUnprocessableEntity, 0, userMessage(err), "")
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "save check-in", "error", err)
		h.renderCheckIns(c, http.StatusInternalServerError, 0, errInternalServer, "")
		return
	}

	c.Redirect(http.StatusSeeOther, "/client/checkins")
}

func (h *ClientHandler) renderCheckIns(c *gin.Context, status, days int, errMsg, notice string) {
	userID := middleware.SessionFrom(c).User.ID
	history, err := h.checkins.List(c.Request.Context(), userID, days)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list check-ins", "error", err)
		render(c, http.StatusInternalServerError, "error.html", page{Title: errInternalServer})
		return
	}
	render(c, status, "checkins.html", page{
		Title:  "Check-ins",
		Error:  errMsg,
		Notice: notice,
		Data:   checkInsData{CheckIns: history},
	})
}

func checkInFromForm(c *gin.Context) (usecase.UpsertCheckInInput, error) {
	var in usecase.UpsertCheckInInput
	var err error

	day, err := formDate(c, "day")
	if err != nil {
		return in, err
	}
	if day != nil {
		in.Day = *day
	}
	if in.WeightKG, err = formFloat(c, "weight_kg"); err != nil {
		return in, err
	}
	if in.SleepHours, err = formFloat(c, "sleep_hours"); err != nil {
		return in, err
	}
	if in.Energy, err = formInt(c, "energy"); err != nil {
		return in, err
	}
	in.Notes = formString(c, "notes")
	return in, nil
}
