package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/gate"
	"github.com/ErlanBelekov/coach-portal/internal/http/middleware"
	"github.com/ErlanBelekov/coach-portal/internal/usecase"
	"github.com/gin-gonic/gin"
)

type onboardingUsecaser interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	Complete(ctx context.Context, input usecase.CompleteOnboardingInput) (*domain.Profile, error)
}

type OnboardingHandler struct {
	onboarding onboardingUsecaser
	routes     gate.Routes
	logger     *slog.Logger
}

func NewOnboardingHandler(onboarding onboardingUsecaser, routes gate.Routes, logger *slog.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		onboarding: onboarding,
		routes:     routes,
		logger:     logger.With("component", "onboarding_handler"),
	}
}

var goalOptions = []string{
	string(domain.GoalLoseWeight),
	string(domain.GoalGainMuscle),
	string(domain.GoalMaintain),
	string(domain.GoalPerformance),
}

type onboardingForm struct {
	RedirectTo string
	FirstName  string
	LastName   string
	Phone      string
	BirthDate  string
	HeightCM   string
	Goal       string
	Goals      []string
}

// GET /onboarding
func (h *OnboardingHandler) Page(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	if middleware.RoleFrom(c) == domain.RoleCoach {
		c.Redirect(http.StatusSeeOther, h.routes.CoachDashboard)
		return
	}

	form := onboardingForm{RedirectTo: c.Query(gate.ParamRedirectTo), Goals: goalOptions}
	p, err := h.onboarding.GetProfile(c.Request.Context(), sess.User.ID)
	switch {
	case err == nil:
		form.FirstName, form.LastName = p.FirstName, p.LastName
		if p.Phone != nil {
			form.Phone = *p.Phone
		}
		if p.BirthDate != nil {
			form.BirthDate = p.BirthDate.Format("2006-01-02")
		}
		if p.HeightCM != nil {
			form.HeightCM = strconv.Itoa(*p.HeightCM)
		}
		if p.Goal != nil {
			form.Goal = string(*p.Goal)
		}
	case !errors.Is(err, domain.ErrProfileNotFound):
		h.logger.ErrorContext(c.Request.Context(), "get profile", "error", err)
		render(c, http.StatusInternalServerError, "error.html", page{Title: errInternalServer})
		return
	}

	render(c, http.StatusOK, "onboarding.html", page{Title: "Onboarding", Data: form})
}

// POST /onboarding
func (h *OnboardingHandler) Submit(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	form := onboardingForm{
		RedirectTo: c.PostForm(gate.ParamRedirectTo),
		FirstName:  c.PostForm("first_name"),
		LastName:   c.PostForm("last_name"),
		Phone:      c.PostForm("phone"),
		BirthDate:  c.PostForm("birth_date"),
		HeightCM:   c.PostForm("height_cm"),
		Goal:       c.PostForm("goal"),
		Goals:      goalOptions,
	}

	_, err := h.complete(c, sess.User.ID, form)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			render(c, http.StatusUnprocessableEntity, "onboarding.html",
				page{Title: "Onboarding", Error: userMessage(err), Data: form})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "complete onboarding", "error", err)
		render(c, http.StatusInternalServerError, "onboarding.html",
			page{Title: "Onboarding", Error: errInternalServer, Data: form})
		return
	}

	c.Redirect(http.StatusSeeOther, gate.SafeRedirect(form.RedirectTo, h.routes.ClientDashboard))
}

func (h *OnboardingHandler) complete(c *gin.Context, userID string, form onboardingForm) (*domain.Profile, error) {
	height, err := formInt(c, "height_cm")
	if err != nil {
		return nil, err
	}
	birth, err := formDate(c, "birth_date")
	if err != nil {
		return nil, err
	}
	return h.onboarding.Complete(c.Request.Context(), usecase.CompleteOnboardingInput{
		UserID:    userID,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Phone:     formString(c, "phone"),
		BirthDate: birth,
		HeightCM:  height,
		Goal:      domain.Goal(form.Goal),
	})
}
