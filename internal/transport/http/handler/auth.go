package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/daniyarbek/magic-link-auth/internal/domain"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	RequestLink(ctx context.Context, email, meta string) error
	VerifyLink(ctx context.Context, rawToken string) (*domain.User, error)
	ExchangeToken(ctx context.Context, rawToken string) (string, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	publicBase  string
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, publicBase string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		publicBase:  publicBase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type requestLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type exchangeRequest struct {
	Token string `json:"token" binding:"required"`
}

// POST /auth/request-link
// Returns {"ok": true} once the link is durably stored, whether or not the
// email exists and whether or not delivery worked (the usecase swallows
// delivery failures), so callers cannot probe for registered addresses.
// A store failure is the one case that surfaces, as a generic 500.
func (h *AuthHandler) RequestLink(c *gin.Context) {
	var req requestLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidEmail})
		return
	}

	meta := "ip=" + c.ClientIP()
	if err := h.authUsecase.RequestLink(c.Request.Context(), req.Email, meta); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "request link", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /auth/verify?token=<raw>
// Consumes the link and hands the raw token back to the browser through a
// redirect fragment; the frontend then calls /auth/exchange with it. The
// link click alone never yields a credential.
func (h *AuthHandler) Verify(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		h.renderError(c, http.StatusBadRequest)
		return
	}

	if _, err := h.authUsecase.VerifyLink(c.Request.Context(), rawToken); err != nil {
		if errors.Is(err, domain.ErrLinkInvalid) {
			h.renderError(c, http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "verify link", "error", err)
		h.renderError(c, http.StatusInternalServerError)
		return
	}

	redirect := h.publicBase + "/#auth=success&token=" + url.QueryEscape(rawToken)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(verifySuccessPage, redirect)))
}

// POST /auth/exchange
// Trades a verified token for a bearer credential.
func (h *AuthHandler) Exchange(c *gin.Context) {
	var req exchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errLinkInvalid})
		return
	}

	credential, err := h.authUsecase.ExchangeToken(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, domain.ErrLinkInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLinkInvalid})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "exchange token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": credential,
		"token_type":   "bearer",
	})
}

// GET /me
// The Auth middleware has already resolved the user into the gin context.
func (h *AuthHandler) Me(c *gin.Context) {
	v, _ := c.Get("user")
	user, ok := v.(*domain.User)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": user.Email})
}

func (h *AuthHandler) renderError(c *gin.Context, status int) {
	c.Data(status, "text/html; charset=utf-8", []byte(verifyErrorPage))
}

const verifySuccessPage = `<html>
  <head>
    <meta http-equiv="refresh" content="0; url='%s'" />
  </head>
  <body>Signing in…</body>
</html>
`

const verifyErrorPage = `<html>
  <body><h2>Invalid or expired link</h2><p>Request a new sign-in link and try again.</p></body>
</html>
`
