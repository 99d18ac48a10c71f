// Package health backs the /healthz and /readyz probes on the metrics port.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const defaultPingTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger, e.g. a Redis client's Ping.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type CheckResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type HealthResult struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

func (r HealthResult) Up() bool { return r.Status == "up" }

type dependency struct {
	name   string
	pinger Pinger
}

// Checker pings the portal's backing services: Postgres always, Redis when
// rate limiting is enabled.
type Checker struct {
	deps    []dependency
	timeout time.Duration
	logger  *slog.Logger
	up      *prometheus.GaugeVec
}

func NewChecker(db Pinger, logger *slog.Logger, reg prometheus.Registerer) *Checker {
	up := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "coachportal",
		Name:      "dependency_up",
		Help:      "1 when the last readiness ping succeeded, else 0.",
	}, []string{"dependency"})
	reg.MustRegister(up)

	return &Checker{
		deps:    []dependency{{name: "postgres", pinger: db}},
		timeout: defaultPingTimeout,
		logger:  logger.With("component", "health"),
		up:      up,
	}
}

func (c *Checker) With(name string, p Pinger) *Checker {
	c.deps = append(c.deps, dependency{name: name, pinger: p})
	return c
}

// Liveness never touches dependencies.
func (c *Checker) Liveness(_ context.Context) HealthResult {
	return HealthResult{Status: "up"}
}

// Readiness pings all dependencies in parallel; one failure marks the
// whole result down.
func (c *Checker) Readiness(ctx context.Context) HealthResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	checks := make([]CheckResult, len(c.deps))
	var g errgroup.Group
	for i, d := range c.deps {
		g.Go(func() error {
			checks[i] = c.ping(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	result := HealthResult{Status: "up", Checks: make(map[string]CheckResult, len(c.deps))}
	for i, d := range c.deps {
		result.Checks[d.name] = checks[i]
		if checks[i].Status != "up" {
			result.Status = "down"
		}
	}
	return result
}

func (c *Checker) ping(ctx context.Context, d dependency) CheckResult {
	start := time.Now()
	err := d.pinger.Ping(ctx)
	res := CheckResult{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		c.logger.WarnContext(ctx, "dependency unreachable", "dependency", d.name, "error", err)
		res.Status, res.Error = "down", err.Error()
		c.up.WithLabelValues(d.name).Set(0)
		return res
	}
	c.up.WithLabelValues(d.name).Set(1)
	return res
}
