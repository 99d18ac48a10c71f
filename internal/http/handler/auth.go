package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/gate"
	"github.com/ErlanBelekov/coach-portal/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	SignUp(ctx context.Context, email, password string) (*domain.User, *domain.Tokens, error)
	SignIn(ctx context.Context, email, password string) (*domain.User, *domain.Tokens, error)
	RequestMagicLink(ctx context.Context, email string) error
	ResendConfirmation(ctx context.Context, user *domain.User) error
	ExchangeToken(ctx context.Context, purpose domain.TokenPurpose, rawToken string) (*domain.User, *domain.Tokens, error)
	ResolveSession(ctx context.Context, accessToken, refreshToken string) (*domain.Session, *domain.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, *domain.Tokens, error)
	SignOut(ctx context.Context, user *domain.User, refreshToken string) error
}

type AuthHandler struct {
	authUsecase authUsecaser
	cookies     middleware.Cookies
	routes      gate.Routes
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, cookies middleware.Cookies, routes gate.Routes, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		cookies:     cookies,
		routes:      routes,
		logger:      logger.With("component", "auth_handler"),
	}
}

type loginData struct {
	Email          string
	RedirectedFrom string
}

// GET /auth/login
func (h *AuthHandler) LoginPage(c *gin.Context) {
	p := page{Title: "Sign in", Data: loginData{RedirectedFrom: c.Query(gate.ParamRedirectedFrom)}}
	if c.Query("error") == loginErrLinkInvalid {
		p.Error = errLinkInvalid
	}
	render(c, http.StatusOK, "login.html", p)
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	data := loginData{Email: c.PostForm("email"), RedirectedFrom: c.PostForm(gate.ParamRedirectedFrom)}

	_, tokens, err := h.authUsecase.SignIn(c.Request.Context(), data.Email, c.PostForm("password"))
	if err != nil {
		status, msg := http.StatusUnauthorized, errInvalidCredentials
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			h.logger.ErrorContext(c.Request.Context(), "sign in", "error", err)
			status, msg = http.StatusInternalServerError, errInternalServer
		}
		render(c, status, "login.html", page{Title: "Sign in", Error: msg, Data: data})
		return
	}

	h.cookies.Set(c, tokens)
	c.Redirect(http.StatusSeeOther, gate.SafeRedirect(data.RedirectedFrom, h.routes.Root))
}

// GET /auth/signup
func (h *AuthHandler) SignupPage(c *gin.Context) {
	render(c, http.StatusOK, "signup.html", page{Title: "Sign up", Data: loginData{}})
}

// POST /auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	data := loginData{Email: c.PostForm("email")}

	_, tokens, err := h.authUsecase.SignUp(c.Request.Context(), data.Email, c.PostForm("password"))
	if err != nil {
		var status int
		var msg string
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			status, msg = http.StatusConflict, errEmailTaken
		case errors.Is(err, domain.ErrWeakPassword):
			status, msg = http.StatusBadRequest, errWeakPassword
		default:
			h.logger.ErrorContext(c.Request.Context(), "sign up", "error", err)
			status, msg = http.StatusInternalServerError, errInternalServer
		}
		render(c, status, "signup.html", page{Title: "Sign up", Error: msg, Data: data})
		return
	}

	h.cookies.Set(c, tokens)
	c.Redirect(http.StatusSeeOther, h.routes.VerifyEmailPath)
}

// POST /auth/magic-link
// Always renders the same page to avoid revealing whether the email exists.
func (h *AuthHandler) MagicLink(c *gin.Context) {
	if addr := c.PostForm("email"); addr != "" {
		if err := h.authUsecase.RequestMagicLink(c.Request.Context(), addr); err != nil {
			h.logger.ErrorContext(c.Request.Context(), "request magic link", "error", err)
		}
	}
	render(c, http.StatusOK, "check_inbox.html", page{Title: "Check your inbox"})
}

// GET /auth/verify-email
func (h *AuthHandler) VerifyEmailPage(c *gin.Context) {
	render(c, http.StatusOK, "verify_email.html", page{Title: "Confirm your email"})
}

// POST /auth/verify-email resends the confirmation link.
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		c.Redirect(http.StatusSeeOther, h.routes.LoginPath)
		return
	}

	p := page{Title: "Confirm your email", Notice: "A new confirmation link is on its way."}
	status := http.StatusOK
	if err := h.authUsecase.ResendConfirmation(c.Request.Context(), &sess.User); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "resend confirmation", "error", err)
		p.Notice, p.Error = "", errInternalServer
		status = http.StatusInternalServerError
	}
	render(c, status, "verify_email.html", p)
}

// GET /api/auth/callback?type=<purpose>&token=<raw>[&next=<path>]
func (h *AuthHandler) Callback(c *gin.Context) {
	purpose := domain.TokenPurpose(c.Query("type"))
	if purpose == "" {
		purpose = domain.PurposeLogin
	}

	_, tokens, err := h.authUsecase.ExchangeToken(c.Request.Context(), purpose, c.Query("token"))
	if err != nil {
		if !errors.Is(err, domain.ErrTokenInvalid) {
			h.logger.ErrorContext(c.Request.Context(), "exchange token", "purpose", purpose, "error", err)
		}
		q := url.Values{"error": {loginErrLinkInvalid}}
		c.Redirect(http.StatusSeeOther, h.routes.LoginPath+"?"+q.Encode())
		return
	}

	h.cookies.Set(c, tokens)
	c.Redirect(http.StatusSeeOther, gate.SafeRedirect(c.Query("next"), h.routes.Root))
}

type tokenRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	TokenType        string    `json:"token_type"`
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func newTokenResponse(t *domain.Tokens) tokenResponse {
	return tokenResponse{
		TokenType:        "Bearer",
		AccessToken:      t.AccessToken,
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshToken:     t.RefreshToken,
		RefreshExpiresAt: t.RefreshExpiresAt,
	}
}

// POST /api/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, tokens, err := h.authUsecase.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredentials})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, newTokenResponse(tokens))
}

// POST /api/auth/refresh
// Accepts {"refresh_token": ...} or, for the browser, the refresh cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	fromCookie := false
	if req.RefreshToken == "" {
		_, req.RefreshToken = h.cookies.Read(c)
		fromCookie = true
	}

	_, tokens, err := h.authUsecase.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrSessionInvalid) {
			if fromCookie {
				h.cookies.Clear(c)
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
			return
		}
		h.logger.WarnContext(c.Request.Context(), "refresh", "error", err)
		c.Header("Retry-After", middleware.RetryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errServiceUnavailable})
		return
	}

	if fromCookie {
		h.cookies.Set(c, tokens)
	}
	c.JSON(http.StatusOK, newTokenResponse(tokens))
}

// POST /api/auth/logout
// Browser form posts are redirected to the login page, API calls get 204.
func (h *AuthHandler) Logout(c *gin.Context) {
	access, refresh := h.cookies.Read(c)
	var req refreshRequest
	if c.ContentType() == gin.MIMEJSON {
		_ = c.ShouldBindJSON(&req)
	}
	if req.RefreshToken != "" {
		refresh = req.RefreshToken
	}
	if token := middleware.BearerToken(c); token != "" {
		access = token
	}

	var user *domain.User
	if access != "" {
		if sess, _, err := h.authUsecase.ResolveSession(c.Request.Context(), access, ""); err == nil && sess != nil {
			user = &sess.User
		}
	}

	if err := h.authUsecase.SignOut(c.Request.Context(), user, refresh); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "sign out", "error", err)
	}
	h.cookies.Clear(c)

	if c.ContentType() == gin.MIMEPOSTForm {
		c.Redirect(http.StatusSeeOther, h.routes.LoginPath)
		return
	}
	c.Status(http.StatusNoContent)
}
