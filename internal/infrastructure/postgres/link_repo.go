package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daniyarbek/magic-link-auth/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LinkRepository struct {
	pool *pgxpool.Pool
}

func NewLinkRepository(pool *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{pool: pool}
}

func (r *LinkRepository) Create(ctx context.Context, email, tokenHash string, expiresAt time.Time, meta string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO magic_links (email, token_hash, expires_at, meta)
		 VALUES ($1, $2, $3, $4)`,
		email, tokenHash, expiresAt, meta,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrLinkConflict
		}
		return fmt.Errorf("insert magic link: %w", err)
	}
	return nil
}

// Consume claims the link with a single conditional UPDATE so that no two
// callers can both observe success for the same fingerprint. The follow-up
// SELECT only classifies an already-failed claim for server-side logs.
func (r *LinkRepository) Consume(ctx context.Context, tokenHash string) (string, error) {
	var email string
	err := r.pool.QueryRow(ctx,
		`UPDATE magic_links
		 SET    used_at = NOW()
		 WHERE  token_hash = $1
		   AND  used_at IS NULL
		   AND  expires_at > NOW()
		 RETURNING email`,
		tokenHash,
	).Scan(&email)
	if err == nil {
		return email, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("consume magic link: %w", err)
	}
	return "", r.classify(ctx, tokenHash)
}

// PeekConsumed judges expiry with the database's NOW() so it can never
// disagree with Consume about whether a link is still live.
func (r *LinkRepository) PeekConsumed(ctx context.Context, tokenHash string) (string, error) {
	var (
		email     string
		consumed  bool
		unexpired bool
	)
	err := r.pool.QueryRow(ctx,
		`SELECT email, used_at IS NOT NULL, expires_at > NOW()
		 FROM magic_links WHERE token_hash = $1`,
		tokenHash,
	).Scan(&email, &consumed, &unexpired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrLinkNotFound
		}
		return "", fmt.Errorf("select magic link: %w", err)
	}

	switch {
	case !consumed:
		return "", domain.ErrLinkNotConsumed
	case !unexpired:
		return "", domain.ErrLinkExpired
	}
	return email, nil
}

func (r *LinkRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM magic_links WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired links: %w", err)
	}
	return tag.RowsAffected(), nil
}

// classify distinguishes why a claim found no row: unknown fingerprint,
// already consumed, or past expiry.
func (r *LinkRepository) classify(ctx context.Context, tokenHash string) error {
	var (
		expiresAt time.Time
		usedAt    *time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT expires_at, used_at FROM magic_links WHERE token_hash = $1`,
		tokenHash,
	).Scan(&expiresAt, &usedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrLinkNotFound
		}
		return fmt.Errorf("classify magic link: %w", err)
	}
	if usedAt != nil {
		return domain.ErrLinkUsed
	}
	return domain.ErrLinkExpired
}
