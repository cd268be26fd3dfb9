package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")

	// Link consumption failure reasons. Outward-facing code must collapse
	// all of them to ErrLinkInvalid so callers cannot probe link state.
	ErrLinkNotFound    = errors.New("link not found")
	ErrLinkUsed        = errors.New("link already used")
	ErrLinkExpired     = errors.New("link expired")
	ErrLinkNotConsumed = errors.New("link not yet consumed")

	// ErrLinkConflict means a freshly generated token hashed to an existing
	// fingerprint. With 256-bit tokens this signals a broken random source.
	ErrLinkConflict = errors.New("link fingerprint conflict")

	ErrLinkInvalid       = errors.New("link is invalid or expired")
	ErrCredentialInvalid = errors.New("credential is invalid or expired")
)

type User struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}

// MagicLink is a single-use, time-bounded sign-in grant. Only the SHA-256
// fingerprint of the issued token is stored, never the token itself.
type MagicLink struct {
	ID        int64
	Email     string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
	Meta      string
}

// Consumable reports whether the link can still be claimed at the given time.
func (l *MagicLink) Consumable(now time.Time) bool {
	return l.UsedAt == nil && now.Before(l.ExpiresAt)
}

// NormalizeEmail canonicalizes an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
