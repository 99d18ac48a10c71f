// Package janitor removes expired magic-link and refresh tokens on a cron
// schedule.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/metrics"
	"github.com/robfig/cron/v3"
)

type MagicTokenStore interface {
	DeleteExpiredMagicTokens(ctx context.Context, before time.Time) (int64, error)
}

type RefreshTokenStore interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Result struct {
	MagicTokens   int64
	RefreshTokens int64
}

type Janitor struct {
	magic    MagicTokenStore
	refresh  RefreshTokenStore
	schedule cron.Schedule
	spec     string
	logger   *slog.Logger
	now      func() time.Time
}

// New parses spec as a standard five-field cron expression or a descriptor
// such as "@every 10m".
func New(magic MagicTokenStore, refresh RefreshTokenStore, spec string, logger *slog.Logger) (*Janitor, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse janitor schedule %q: %w", spec, err)
	}
	return &Janitor{
		magic:    magic,
		refresh:  refresh,
		schedule: sched,
		spec:     spec,
		logger:   logger.With("component", "janitor"),
		now:      time.Now,
	}, nil
}

// Start runs once immediately, then on every tick of the schedule until
// ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("janitor started", "schedule", j.spec)

	for {
		if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
			j.logger.Error("janitor run", "error", err)
		}

		wait := time.Until(j.schedule.Next(j.now()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("janitor stopped")
			return
		case <-timer.C:
		}
	}
}

// RunOnce deletes everything that expired before now. A failure in one
// table does not stop the other from being swept.
func (j *Janitor) RunOnce(ctx context.Context) (Result, error) {
	start := j.now()
	defer func() { metrics.JanitorRunDuration.Observe(time.Since(start).Seconds()) }()

	var res Result
	var errs []error

	n, err := j.magic.DeleteExpiredMagicTokens(ctx, start)
	if err != nil {
		errs = append(errs, fmt.Errorf("magic tokens: %w", err))
	} else {
		res.MagicTokens = n
		metrics.JanitorDeletedTotal.WithLabelValues("magic_token").Add(float64(n))
	}

	n, err = j.refresh.DeleteExpired(ctx, start)
	if err != nil {
		errs = append(errs, fmt.Errorf("refresh tokens: %w", err))
	} else {
		res.RefreshTokens = n
		metrics.JanitorDeletedTotal.WithLabelValues("refresh_token").Add(float64(n))
	}

	if res.MagicTokens > 0 || res.RefreshTokens > 0 {
		j.logger.Info("expired tokens removed", "magic_tokens", res.MagicTokens, "refresh_tokens", res.RefreshTokens)
	}
	return res, errors.Join(errs...)
}
