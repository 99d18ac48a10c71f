package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/coach-portal/config"
	"github.com/ErlanBelekov/coach-portal/internal/health"
	"github.com/ErlanBelekov/coach-portal/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/coach-portal/internal/janitor"
	ctxlog "github.com/ErlanBelekov/coach-portal/internal/log"
	"github.com/ErlanBelekov/coach-portal/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	j, err := janitor.New(postgres.NewUserRepository(pool), postgres.NewRefreshTokenRepository(pool), cfg.JanitorCron, logger)
	if err != nil {
		stop()
		pool.Close()
		log.Fatalf("janitor: %v", err)
	}
	go j.Start(ctx)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("janitor shut down")
}
