package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/daniyarbek/magic-link-auth/internal/domain"
	"github.com/gin-gonic/gin"
)

const errUnauthorized = "Unauthorized"

// Authenticator validates a bearer credential and resolves its subject.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*domain.User, error)
}

// Auth validates the Authorization bearer credential and sets "user" in the
// gin context. Every failure maps to the same 401 body.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		credential := strings.TrimPrefix(header, "Bearer ")
		user, err := auth.Authenticate(c.Request.Context(), credential)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set("user", user)
		c.Next()
	}
}
