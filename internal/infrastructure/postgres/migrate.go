package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Idempotent DDL run at startup. The unique index on token_hash is what makes
// fingerprint collisions surface as insert conflicts, and the unique index on
// email is what makes GetOrCreate race-safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		email      TEXT        NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS magic_links (
		id         BIGSERIAL PRIMARY KEY,
		email      TEXT        NOT NULL,
		token_hash TEXT        NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		used_at    TIMESTAMPTZ,
		meta       TEXT        NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS magic_links_email_idx ON magic_links (email)`,
	`CREATE INDEX IF NOT EXISTS magic_links_expires_at_idx ON magic_links (expires_at)`,
}

// Migrate applies the schema. Safe to run on every boot.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
