package config_test

import (
	"testing"
	"time"

	"github.com/daniyarbek/magic-link-auth/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/auth")
	t.Setenv("JWT_SECRET", "config-test-jwt-secret-32-chars!!")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "local" {
		t.Errorf("Env = %q, want local", cfg.Env)
	}
	if cfg.LinkTTL != 15*time.Minute {
		t.Errorf("LinkTTL = %v, want 15m", cfg.LinkTTL)
	}
	if cfg.AccessTokenTTL != 720*time.Hour {
		t.Errorf("AccessTokenTTL = %v, want 720h", cfg.AccessTokenTTL)
	}
	if cfg.LinkRetention != 0 {
		t.Errorf("LinkRetention = %v, want 0 (keep forever)", cfg.LinkRetention)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/auth")
	t.Setenv("JWT_SECRET", "")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoad_ShortSecretRejected(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/auth")
	t.Setenv("JWT_SECRET", "too-short")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for short JWT_SECRET")
	}
}

func TestLoad_ProductionRequiresEmailConfig(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "production")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error: production requires Resend configuration")
	}

	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("RESEND_FROM", "auth@example.com")
	if _, err := config.Load(); err != nil {
		t.Fatalf("unexpected error with email config set: %v", err)
	}
}
