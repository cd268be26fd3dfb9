package middleware

import (
	"github.com/daniyarbek/magic-link-auth/internal/requestid"
	"github.com/gin-gonic/gin"
)

// RequestID makes sure every request carries a correlation ID: an incoming
// X-Request-ID header wins, otherwise one is minted. The ID is stored in the
// request context for the logger and echoed in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = requestid.New()
		}

		ctx := requestid.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
