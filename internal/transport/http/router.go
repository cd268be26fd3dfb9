package httptransport

import (
	"log/slog"

	"github.com/daniyarbek/magic-link-auth/internal/transport/http/handler"
	"github.com/daniyarbek/magic-link-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, auth middleware.Authenticator, corsOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(middleware.CORS(corsOrigin))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.POST("/auth/request-link", authHandler.RequestLink)
	r.GET("/auth/verify", authHandler.Verify)
	r.POST("/auth/exchange", authHandler.Exchange)

	r.GET("/me", middleware.Auth(auth), authHandler.Me)

	return r
}
