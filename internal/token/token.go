// Package token generates the random secrets embedded in magic links and
// computes the one-way fingerprints under which they are stored.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// rawBytes gives tokens 256 bits of entropy.
const rawBytes = 32

// Codec is stateless; it exists so callers can take it as a collaborator
// and tests can substitute a deterministic one.
type Codec struct{}

// Generate returns a cryptographically random, URL-safe token.
func (Codec) Generate() (string, error) {
	b := make([]byte, rawBytes)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Fingerprint returns the SHA-256 hex digest of a raw token. Stores hold
// fingerprints only, so a leaked table never exposes usable tokens.
func (Codec) Fingerprint(raw string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}
