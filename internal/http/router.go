package httptransport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/gate"
	"github.com/ErlanBelekov/coach-portal/internal/http/handler"
	"github.com/ErlanBelekov/coach-portal/internal/http/middleware"
	"github.com/ErlanBelekov/coach-portal/internal/http/views"
	"github.com/ErlanBelekov/coach-portal/internal/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	Onboarding *handler.OnboardingHandler
	Client     *handler.ClientHandler
	Coach      *handler.CoachHandler
	Gate       *handler.GateHandler
}

type Options struct {
	Evaluator     *gate.Evaluator
	Sessions      middleware.SessionResolver
	Profiles      gate.ProfileFinder
	Cookies       middleware.Cookies
	OperatorEmail string
	// Limiter may be nil, which disables rate limiting.
	Limiter        ratelimit.Limiter
	AllowedOrigins []string
	HSTS           bool
}

func NewRouter(logger *slog.Logger, h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(opts.HSTS))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())
	r.SetHTMLTemplate(views.Templates())

	r.StaticFS("/static", http.FS(views.Static()))
	r.GET("/favicon.ico", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	limit := func(route string) gin.HandlerFunc {
		return middleware.RateLimit(opts.Limiter, route, logger)
	}

	// Pages: every request passes the gate before reaching a handler.
	pages := r.Group("/", middleware.Gate(opts.Evaluator, opts.Sessions, opts.Cookies))
	pages.GET("/", handler.NotFound) // the gate always redirects "/"

	auth := pages.Group("/auth")
	auth.GET("/login", h.Auth.LoginPage)
	auth.POST("/login", limit("login"), h.Auth.Login)
	auth.GET("/signup", h.Auth.SignupPage)
	auth.POST("/signup", limit("signup"), h.Auth.Signup)
	auth.POST("/magic-link", limit("magic_link"), h.Auth.MagicLink)
	auth.GET("/verify-email", h.Auth.VerifyEmailPage)
	auth.POST("/verify-email", limit("resend_confirmation"), h.Auth.ResendConfirmation)

	pages.GET("/onboarding", h.Onboarding.Page)
	pages.POST("/onboarding", h.Onboarding.Submit)

	client := pages.Group("/client", middleware.RequireRole(domain.RoleClient))
	client.GET("/dashboard", h.Client.Dashboard)
	client.GET("/checkins", h.Client.CheckIns)
	client.POST("/checkins", h.Client.SaveCheckIn)

	coach := pages.Group("/coach", middleware.RequireRole(domain.RoleCoach))
	coach.GET("/dashboard", h.Coach.Dashboard)
	coach.GET("/clients/:id/checkins", h.Coach.ClientCheckIns)

	corsMW := cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})

	// Unknown pages are gated too, so anonymous visitors get the login
	// redirect. Preflights never match a route and land here as well.
	r.NoRoute(apiFallback(corsMW), middleware.Gate(opts.Evaluator, opts.Sessions, opts.Cookies), handler.NotFound)

	api := r.Group("/api", corsMW)

	apiAuth := api.Group("/auth")
	apiAuth.GET("/callback", h.Auth.Callback)
	apiAuth.POST("/token", limit("token"), h.Auth.Token)
	apiAuth.POST("/refresh", h.Auth.Refresh)
	apiAuth.POST("/logout", h.Auth.Logout)

	api.POST("/gate", h.Gate.Evaluate)
	api.GET("/me", middleware.Bearer(opts.Sessions, opts.Profiles, opts.OperatorEmail, logger), h.Gate.Me)

	return r
}

func apiFallback(corsMW gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			return
		}
		corsMW(c)
		if !c.IsAborted() {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found"})
		}
	}
}
