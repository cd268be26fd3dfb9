package repository

import (
	"context"

	"github.com/daniyarbek/magic-link-auth/internal/domain"
)

// UserRepository owns user records, keyed by normalized email.
type UserRepository interface {
	// GetOrCreate returns the user for email, creating it if absent. Safe
	// under concurrent calls for the same email: at most one row ever exists.
	GetOrCreate(ctx context.Context, email string) (*domain.User, error)

	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
