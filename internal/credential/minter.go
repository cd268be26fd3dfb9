// Package credential issues and validates the long-lived bearer tokens handed
// out after a successful magic-link exchange. Tokens are self-contained HS256
// JWTs, so validation never touches the database.
package credential

import (
	"errors"
	"strconv"
	"time"

	"github.com/daniyarbek/magic-link-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const defaultTTL = 30 * 24 * time.Hour

type Minter struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewMinter(key []byte, ttl time.Duration) *Minter {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Minter{
		key: key,
		ttl: ttl,
		now: time.Now,
	}
}

// Issue signs a bearer token for the given user, valid for the configured
// lifetime.
func (m *Minter) Issue(userID int64) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": now.Unix(),
		"exp": now.Add(m.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Validate checks signature and expiry and returns the subject user ID.
// Any failure, including a missing or non-integer subject, yields
// domain.ErrCredentialInvalid.
func (m *Minter) Validate(raw string) (int64, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.key, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return 0, domain.ErrCredentialInvalid
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, domain.ErrCredentialInvalid
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, domain.ErrCredentialInvalid
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, domain.ErrCredentialInvalid
	}
	return userID, nil
}
