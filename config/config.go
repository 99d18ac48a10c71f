package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ErlanBelekov/coach-portal/internal/gate"
)

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT"      envDefault:"8080"  validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret          string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"  validate:"min=1m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h" validate:"min=1h"`
	RefreshReuseWindow time.Duration `env:"REFRESH_REUSE_WINDOW" envDefault:"10s" validate:"max=1m"`
	AuthJWKSURL        string        `env:"AUTH_JWKS_URL"     validate:"omitempty,url"`

	ResendAPIKey  string `env:"RESEND_API_KEY"      validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom    string `env:"RESEND_FROM"         validate:"required_if=Env production,required_if=Env staging"`
	MagicLinkBase string `env:"MAGIC_LINK_BASE_URL" envDefault:"http://localhost:8080" validate:"url"`

	// OperatorEmail bootstraps the coach role for an account that has no
	// persisted role yet.
	OperatorEmail string `env:"OPERATOR_EMAIL" validate:"omitempty,email"`

	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"false"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	RedisURL          string        `env:"REDIS_URL"`
	RateLimitCapacity int           `env:"RATE_LIMIT_CAPACITY" envDefault:"10" validate:"min=1,max=1000"`
	RateLimitRefill   time.Duration `env:"RATE_LIMIT_REFILL"   envDefault:"1m" validate:"min=1s"`

	JanitorCron string `env:"JANITOR_CRON" envDefault:"@every 10m" validate:"required"`
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Routes returns the gate routing table shared by the cookie middleware and
// the client guard API.
func (c *Config) Routes() gate.Routes {
	return gate.DefaultRoutes()
}
