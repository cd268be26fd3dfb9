package repository

import (
	"context"
	"time"
)

// LinkRepository owns magic-link persistence and the single-use transition.
type LinkRepository interface {
	// Create stores a new unconsumed link. Returns domain.ErrLinkConflict
	// if the fingerprint is already present.
	Create(ctx context.Context, email, tokenHash string, expiresAt time.Time, meta string) error

	// Consume atomically claims the link identified by tokenHash and returns
	// its email. At most one caller ever succeeds for a given fingerprint;
	// the rest receive domain.ErrLinkNotFound, ErrLinkUsed or ErrLinkExpired.
	Consume(ctx context.Context, tokenHash string) (string, error)

	// PeekConsumed returns the email of a link that has already been consumed
	// and is not yet expired, without mutating it. Fails with
	// domain.ErrLinkNotFound, ErrLinkNotConsumed or ErrLinkExpired.
	PeekConsumed(ctx context.Context, tokenHash string) (string, error)

	// DeleteExpiredBefore purges links whose expiry predates cutoff and
	// returns the number of rows removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
