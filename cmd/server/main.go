package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/coach-portal/config"
	"github.com/ErlanBelekov/coach-portal/internal/authevents"
	"github.com/ErlanBelekov/coach-portal/internal/email"
	"github.com/ErlanBelekov/coach-portal/internal/gate"
	"github.com/ErlanBelekov/coach-portal/internal/health"
	httptransport "github.com/ErlanBelekov/coach-portal/internal/http"
	"github.com/ErlanBelekov/coach-portal/internal/http/handler"
	"github.com/ErlanBelekov/coach-portal/internal/http/middleware"
	"github.com/ErlanBelekov/coach-portal/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/coach-portal/internal/log"
	"github.com/ErlanBelekov/coach-portal/internal/metrics"
	"github.com/ErlanBelekov/coach-portal/internal/ratelimit"
	"github.com/ErlanBelekov/coach-portal/internal/session"
	"github.com/ErlanBelekov/coach-portal/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	// Redis is optional; without it rate limiting is off.
	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, "coachportal:rl", cfg.RateLimitCapacity, cfg.RateLimitRefill)
		checker.With("redis", health.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }))
	} else {
		logger.Warn("REDIS_URL not set, rate limiting disabled")
	}

	// Repositories
	userRepo := postgres.NewUserRepository(pool)
	refreshRepo := postgres.NewRefreshTokenRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	checkInRepo := postgres.NewCheckInRepository(pool)

	// Sessions
	var verifier session.Verifier = session.NewHMACVerifier([]byte(cfg.JWTSecret))
	if cfg.AuthJWKSURL != "" {
		jwks, err := session.NewJWKSVerifier(ctx, cfg.AuthJWKSURL)
		if err != nil {
			return err
		}
		verifier = session.ChainVerifier{verifier, jwks}
	}
	sessions := session.NewService(userRepo, refreshRepo, session.Options{
		Key:         []byte(cfg.JWTSecret),
		AccessTTL:   cfg.AccessTokenTTL,
		RefreshTTL:  cfg.RefreshTokenTTL,
		ReuseWindow: cfg.RefreshReuseWindow,
		Verifier:    verifier,
	})

	broker := authevents.NewBroker()
	defer broker.Close()
	recorder := authevents.NewRecorder(broker, logger)

	// Usecases
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	authUsecase := usecase.NewAuthUsecase(userRepo, sessions, sender, broker, cfg.MagicLinkBase).
		WithLogger(logger)
	onboardingUsecase := usecase.NewOnboardingUsecase(profileRepo)
	checkInUsecase := usecase.NewCheckInUsecase(checkInRepo)
	rosterUsecase := usecase.NewRosterUsecase(userRepo, profileRepo, checkInUsecase, cfg.OperatorEmail)

	routes := cfg.Routes()
	evaluator := gate.NewEvaluator(routes, profileRepo, cfg.OperatorEmail, logger)
	cookies := middleware.NewCookies(cfg.CookieDomain, cfg.CookieSecure)

	router := httptransport.NewRouter(logger, httptransport.Handlers{
		Auth:       handler.NewAuthHandler(authUsecase, cookies, routes, logger),
		Onboarding: handler.NewOnboardingHandler(onboardingUsecase, routes, logger),
		Client:     handler.NewClientHandler(onboardingUsecase, checkInUsecase, logger),
		Coach:      handler.NewCoachHandler(rosterUsecase, logger),
		Gate:       handler.NewGateHandler(evaluator, authUsecase),
	}, httptransport.Options{
		Evaluator:      evaluator,
		Sessions:       authUsecase,
		Profiles:       profileRepo,
		Cookies:        cookies,
		OperatorEmail:  cfg.OperatorEmail,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		HSTS:           cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started", "port", cfg.Port)
		return listen(srv)
	})
	g.Go(func() error {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		return listen(metricsSrv)
	})
	g.Go(func() error {
		return recorder.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
