package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/daniyarbek/magic-link-auth/internal/domain"
	"github.com/daniyarbek/magic-link-auth/internal/email"
	"github.com/daniyarbek/magic-link-auth/internal/metrics"
	"github.com/daniyarbek/magic-link-auth/internal/repository"
)

const (
	defaultLinkTTL = 15 * time.Minute

	// deliveryTimeout bounds the email transport call so a slow provider
	// cannot stall sign-in requests.
	deliveryTimeout = 5 * time.Second
)

// TokenCodec produces raw link tokens and their stored fingerprints.
type TokenCodec interface {
	Generate() (string, error)
	Fingerprint(raw string) string
}

// CredentialMinter issues and validates bearer credentials for a user ID.
type CredentialMinter interface {
	Issue(userID int64) (string, error)
	Validate(raw string) (int64, error)
}

// AuthUsecase drives the magic-link lifecycle:
// request -> verify (consume) -> exchange -> authenticate.
type AuthUsecase struct {
	links   repository.LinkRepository
	users   repository.UserRepository
	codec   TokenCodec
	minter  CredentialMinter
	sender  email.Sender
	logger  *slog.Logger
	linkTTL time.Duration
	apiBase string
	now     func() time.Time
}

func NewAuthUsecase(
	links repository.LinkRepository,
	users repository.UserRepository,
	codec TokenCodec,
	minter CredentialMinter,
	sender email.Sender,
	logger *slog.Logger,
	linkTTL time.Duration,
	apiBase string,
) *AuthUsecase {
	if linkTTL <= 0 {
		linkTTL = defaultLinkTTL
	}
	return &AuthUsecase{
		links:   links,
		users:   users,
		codec:   codec,
		minter:  minter,
		sender:  sender,
		logger:  logger.With("component", "auth"),
		linkTTL: linkTTL,
		apiBase: apiBase,
		now:     time.Now,
	}
}

// RequestLink generates a token, durably stores its fingerprint, and attempts
// delivery. Delivery is best-effort: a failed or slow send is logged and the
// request still succeeds, so callers cannot infer whether an address exists.
func (u *AuthUsecase) RequestLink(ctx context.Context, emailAddr, meta string) error {
	emailAddr = domain.NormalizeEmail(emailAddr)

	raw, err := u.codec.Generate()
	if err != nil {
		return fmt.Errorf("generate link token: %w", err)
	}

	expiresAt := u.now().Add(u.linkTTL)
	err = u.links.Create(ctx, emailAddr, u.codec.Fingerprint(raw), expiresAt, meta)
	if err != nil {
		if errors.Is(err, domain.ErrLinkConflict) {
			// Two tokens hashed identically; the random source is broken.
			u.logger.ErrorContext(ctx, "link fingerprint collision", "error", err)
		}
		return fmt.Errorf("store magic link: %w", err)
	}
	metrics.LinksIssuedTotal.Inc()

	u.deliver(ctx, emailAddr, raw)
	return nil
}

func (u *AuthUsecase) deliver(ctx context.Context, emailAddr, raw string) {
	link := u.apiBase + "/auth/verify?token=" + raw
	subject := "Your sign-in link"
	body := fmt.Sprintf(
		`<p>Click the link below to sign in (expires in %d minutes):</p><p><a href="%s">%s</a></p><p>If you didn't request this, ignore it.</p>`,
		int(u.linkTTL.Minutes()), link, link,
	)

	sendCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	start := time.Now()
	err := u.sender.Send(sendCtx, emailAddr, subject, body)
	metrics.EmailSendDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EmailSendTotal.WithLabelValues("failure").Inc()
		u.logger.WarnContext(ctx, "magic link delivery failed", "error", err)
		return
	}
	metrics.EmailSendTotal.WithLabelValues("success").Inc()
}

// VerifyLink atomically consumes the link for the given raw token and resolves
// (creating on first sign-in) the owning user. Consumption rejections collapse
// to domain.ErrLinkInvalid so the caller learns nothing about link state.
func (u *AuthUsecase) VerifyLink(ctx context.Context, rawToken string) (*domain.User, error) {
	emailAddr, err := u.links.Consume(ctx, u.codec.Fingerprint(rawToken))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLinkNotFound):
			metrics.LinksConsumedTotal.WithLabelValues("not_found").Inc()
		case errors.Is(err, domain.ErrLinkUsed):
			metrics.LinksConsumedTotal.WithLabelValues("already_used").Inc()
		case errors.Is(err, domain.ErrLinkExpired):
			metrics.LinksConsumedTotal.WithLabelValues("expired").Inc()
		default:
			metrics.LinksConsumedTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("consume magic link: %w", err)
		}
		u.logger.InfoContext(ctx, "magic link rejected", "reason", err)
		return nil, domain.ErrLinkInvalid
	}
	metrics.LinksConsumedTotal.WithLabelValues("success").Inc()

	user, err := u.users.GetOrCreate(ctx, emailAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return user, nil
}

// ExchangeToken mints a bearer credential for a token whose link has already
// been consumed by VerifyLink. The two-step handshake keeps email prefetchers
// that follow the link from obtaining a credential: only the browser, which
// received the token back through the redirect, calls exchange.
func (u *AuthUsecase) ExchangeToken(ctx context.Context, rawToken string) (string, error) {
	emailAddr, err := u.links.PeekConsumed(ctx, u.codec.Fingerprint(rawToken))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLinkNotFound),
			errors.Is(err, domain.ErrLinkNotConsumed),
			errors.Is(err, domain.ErrLinkExpired):
			u.logger.InfoContext(ctx, "exchange rejected", "reason", err)
			return "", domain.ErrLinkInvalid
		}
		return "", fmt.Errorf("peek magic link: %w", err)
	}

	user, err := u.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrLinkInvalid
		}
		return "", fmt.Errorf("resolve user: %w", err)
	}

	credential, err := u.minter.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue credential: %w", err)
	}
	metrics.CredentialsIssuedTotal.Inc()
	return credential, nil
}

// Authenticate validates a bearer credential and resolves its subject.
func (u *AuthUsecase) Authenticate(ctx context.Context, credential string) (*domain.User, error) {
	userID, err := u.minter.Validate(credential)
	if err != nil {
		return nil, domain.ErrCredentialInvalid
	}

	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrCredentialInvalid
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return user, nil
}
