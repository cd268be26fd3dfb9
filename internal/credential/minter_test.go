package credential

import (
	"errors"
	"testing"
	"time"

	"github.com/daniyarbek/magic-link-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const testKey = "credential-test-secret-32-chars!!"

func newTestMinter(ttl time.Duration) *Minter {
	return NewMinter([]byte(testKey), ttl)
}

func TestIssueValidate_RoundTrip(t *testing.T) {
	m := newTestMinter(time.Hour)

	for _, userID := range []int64{1, 42, 9_000_000_000} {
		signed, err := m.Issue(userID)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		got, err := m.Validate(signed)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if got != userID {
			t.Errorf("validate returned %d, want %d", got, userID)
		}
	}
}

func TestValidate_ExpiredCredential(t *testing.T) {
	m := newTestMinter(time.Hour)
	base := time.Now()
	m.now = func() time.Time { return base }

	signed, err := m.Issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Still valid just before expiry.
	m.now = func() time.Time { return base.Add(59 * time.Minute) }
	if _, err := m.Validate(signed); err != nil {
		t.Fatalf("credential rejected before expiry: %v", err)
	}

	// Rejected once lifetime elapses.
	m.now = func() time.Time { return base.Add(61 * time.Minute) }
	if _, err := m.Validate(signed); !errors.Is(err, domain.ErrCredentialInvalid) {
		t.Errorf("want ErrCredentialInvalid after expiry, got %v", err)
	}
}

func TestValidate_TamperedSignature(t *testing.T) {
	m := newTestMinter(time.Hour)
	signed, err := m.Issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tampered := signed[:len(signed)-2] + "xx"
	if _, err := m.Validate(tampered); !errors.Is(err, domain.ErrCredentialInvalid) {
		t.Errorf("want ErrCredentialInvalid for tampered token, got %v", err)
	}
}

func TestValidate_WrongKey(t *testing.T) {
	signed, err := NewMinter([]byte("another-signing-secret-32-chars!!"), time.Hour).Issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := newTestMinter(time.Hour).Validate(signed); !errors.Is(err, domain.ErrCredentialInvalid) {
		t.Errorf("want ErrCredentialInvalid for foreign key, got %v", err)
	}
}

func TestValidate_MalformedSubject(t *testing.T) {
	now := time.Now()
	cases := map[string]jwt.MapClaims{
		"missing sub": {
			"iat": now.Unix(),
			"exp": now.Add(time.Hour).Unix(),
		},
		"non-integer sub": {
			"sub": "not-a-number",
			"iat": now.Unix(),
			"exp": now.Add(time.Hour).Unix(),
		},
		"numeric non-string sub": {
			"sub": 12.5,
			"iat": now.Unix(),
			"exp": now.Add(time.Hour).Unix(),
		},
	}

	m := newTestMinter(time.Hour)
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testKey))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if _, err := m.Validate(signed); !errors.Is(err, domain.ErrCredentialInvalid) {
				t.Errorf("want ErrCredentialInvalid, got %v", err)
			}
		})
	}
}

func TestValidate_GarbageInput(t *testing.T) {
	m := newTestMinter(time.Hour)
	for _, raw := range []string{"", "not.a.jwt", "a.b"} {
		if _, err := m.Validate(raw); !errors.Is(err, domain.ErrCredentialInvalid) {
			t.Errorf("Validate(%q): want ErrCredentialInvalid, got %v", raw, err)
		}
	}
}
