package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config is loaded once at startup and treated as immutable for the process
// lifetime.
type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret      string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"720h"`
	LinkTTL        time.Duration `env:"LINK_TTL" envDefault:"15m"`

	// PublicBaseURL is where the browser frontend lives (verify redirects
	// there); APIBaseURL is the address emailed links point at.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	APIBaseURL    string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`

	// LinkRetention of 0 keeps consumed/expired links forever (audit trail).
	// A positive value purges links that expired longer ago than the window.
	LinkRetention time.Duration `env:"LINK_RETENTION" envDefault:"0"`
	RetentionCron string        `env:"RETENTION_CRON" envDefault:"0 3 * * *"`
}

func Load() (*Config, error) {
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
	switch c.LogLevel {
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
