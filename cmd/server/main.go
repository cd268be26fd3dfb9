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

	"github.com/daniyarbek/magic-link-auth/config"
	"github.com/daniyarbek/magic-link-auth/internal/credential"
	"github.com/daniyarbek/magic-link-auth/internal/email"
	"github.com/daniyarbek/magic-link-auth/internal/health"
	"github.com/daniyarbek/magic-link-auth/internal/infrastructure/postgres"
	ctxlog "github.com/daniyarbek/magic-link-auth/internal/log"
	"github.com/daniyarbek/magic-link-auth/internal/metrics"
	"github.com/daniyarbek/magic-link-auth/internal/retention"
	"github.com/daniyarbek/magic-link-auth/internal/token"
	httptransport "github.com/daniyarbek/magic-link-auth/internal/transport/http"
	"github.com/daniyarbek/magic-link-auth/internal/transport/http/handler"
	"github.com/daniyarbek/magic-link-auth/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		stop()
		log.Fatalf("migrate: %v", err)
	}

	linkRepo := postgres.NewLinkRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	minter := credential.NewMinter([]byte(cfg.JWTSecret), cfg.AccessTokenTTL)
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)

	authUsecase := usecase.NewAuthUsecase(
		linkRepo, userRepo, token.Codec{}, minter, sender,
		logger, cfg.LinkTTL, cfg.APIBaseURL,
	)
	authHandler := handler.NewAuthHandler(authUsecase, cfg.PublicBaseURL, logger)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	if cfg.LinkRetention > 0 {
		sweeper, err := retention.NewSweeper(linkRepo, logger, cfg.RetentionCron, cfg.LinkRetention)
		if err != nil {
			stop()
			log.Fatalf("retention: %v", err)
		}
		go sweeper.Start(ctx)
	}

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, authHandler, authUsecase, cfg.PublicBaseURL),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
