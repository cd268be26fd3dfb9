package httptransport_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/daniyarbek/magic-link-auth/internal/credential"
	"github.com/daniyarbek/magic-link-auth/internal/domain"
	"github.com/daniyarbek/magic-link-auth/internal/token"
	httptransport "github.com/daniyarbek/magic-link-auth/internal/transport/http"
	"github.com/daniyarbek/magic-link-auth/internal/transport/http/handler"
	"github.com/daniyarbek/magic-link-auth/internal/usecase"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	e2eJWTKey     = "router-test-jwt-secret-32-chars!!"
	e2eAPIBase    = "http://localhost:8080"
	e2ePublicBase = "http://localhost:3000"
)

// In-memory stores give the full stack real single-use semantics without a
// database.

type linkRecord struct {
	email     string
	expiresAt time.Time
	usedAt    *time.Time
}

type memLinks struct {
	mu    sync.Mutex
	links map[string]*linkRecord
}

func (m *memLinks) Create(_ context.Context, email, tokenHash string, expiresAt time.Time, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[tokenHash]; ok {
		return domain.ErrLinkConflict
	}
	m.links[tokenHash] = &linkRecord{email: email, expiresAt: expiresAt}
	return nil
}

func (m *memLinks) Consume(_ context.Context, tokenHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[tokenHash]
	switch {
	case !ok:
		return "", domain.ErrLinkNotFound
	case l.usedAt != nil:
		return "", domain.ErrLinkUsed
	case !time.Now().Before(l.expiresAt):
		return "", domain.ErrLinkExpired
	}
	now := time.Now()
	l.usedAt = &now
	return l.email, nil
}

func (m *memLinks) PeekConsumed(_ context.Context, tokenHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[tokenHash]
	switch {
	case !ok:
		return "", domain.ErrLinkNotFound
	case l.usedAt == nil:
		return "", domain.ErrLinkNotConsumed
	case !time.Now().Before(l.expiresAt):
		return "", domain.ErrLinkExpired
	}
	return l.email, nil
}

func (m *memLinks) DeleteExpiredBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	nextID  int64
}

func (m *memUsers) GetOrCreate(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	m.nextID++
	u := &domain.User{ID: m.nextID, Email: email, CreatedAt: time.Now()}
	m.byEmail[email] = u
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

// stubSender records the last emailed sign-in link.
type stubSender struct {
	mu       sync.Mutex
	lastBody string
}

func (s *stubSender) Send(_ context.Context, _, _, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastBody = body
	return nil
}

func (s *stubSender) lastToken(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := strings.Index(s.lastBody, "?token=")
	if idx == -1 {
		t.Fatal("no token in captured email body")
	}
	return strings.SplitN(s.lastBody[idx+len("?token="):], `"`, 2)[0]
}

func newTestStack() (*gin.Engine, *stubSender) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	links := &memLinks{links: make(map[string]*linkRecord)}
	users := &memUsers{byEmail: make(map[string]*domain.User)}
	sender := &stubSender{}

	uc := usecase.NewAuthUsecase(
		links, users, token.Codec{},
		credential.NewMinter([]byte(e2eJWTKey), time.Hour),
		sender, logger, 15*time.Minute, e2eAPIBase,
	)
	h := handler.NewAuthHandler(uc, e2ePublicBase, logger)
	return httptransport.NewRouter(logger, h, uc, ""), sender
}

func do(r *gin.Engine, method, path, body, bearer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSignInFlow_EndToEnd(t *testing.T) {
	r, sender := newTestStack()

	// 1. Request a sign-in link.
	w := do(r, http.MethodPost, "/auth/request-link", `{"email":"a@b.com"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("request-link status = %d, want 200", w.Code)
	}
	rawToken := sender.lastToken(t)

	// 2. Follow the link: the response page redirects back to the frontend
	//    carrying the raw token.
	w = do(r, http.MethodGet, "/auth/verify?token="+rawToken, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "auth=success&token="+rawToken) {
		t.Fatalf("verify page %q missing success redirect", w.Body.String())
	}

	// 3. Exchange the verified token for a bearer credential.
	w = do(r, http.MethodPost, "/auth/exchange", `{"token":"`+rawToken+`"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("exchange status = %d, want 200", w.Code)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode exchange response: %v", err)
	}
	if out.TokenType != "bearer" {
		t.Errorf("token_type = %q, want bearer", out.TokenType)
	}
	if out.AccessToken == "" {
		t.Fatal("empty access_token")
	}

	// 4. The credential authenticates /me.
	w = do(r, http.MethodGet, "/me", "", out.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"email":"a@b.com"`) {
		t.Errorf("me body = %q, want the signed-in email", w.Body.String())
	}
}

func TestSignInFlow_ExchangeBeforeVerifyFails(t *testing.T) {
	r, sender := newTestStack()

	do(r, http.MethodPost, "/auth/request-link", `{"email":"a@b.com"}`, "")
	rawToken := sender.lastToken(t)

	w := do(r, http.MethodPost, "/auth/exchange", `{"token":"`+rawToken+`"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("exchange before verify status = %d, want 400", w.Code)
	}
}

func TestSignInFlow_VerifyIsSingleUseButExchangeRepeats(t *testing.T) {
	r, sender := newTestStack()

	do(r, http.MethodPost, "/auth/request-link", `{"email":"a@b.com"}`, "")
	rawToken := sender.lastToken(t)

	if w := do(r, http.MethodGet, "/auth/verify?token="+rawToken, "", ""); w.Code != http.StatusOK {
		t.Fatalf("first verify status = %d, want 200", w.Code)
	}

	// Exchange works repeatedly against the consumed link.
	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodPost, "/auth/exchange", `{"token":"`+rawToken+`"}`, ""); w.Code != http.StatusOK {
			t.Fatalf("exchange #%d status = %d, want 200", i+1, w.Code)
		}
	}

	// A second click on the link is rejected with the generic page.
	w := do(r, http.MethodGet, "/auth/verify?token="+rawToken, "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("second verify status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid or expired link") {
		t.Errorf("second verify body %q is not the generic page", w.Body.String())
	}
}

func TestMe_WithoutCredential_Returns401(t *testing.T) {
	r, _ := newTestStack()

	w := do(r, http.MethodGet, "/me", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("me status = %d, want 401", w.Code)
	}
}

func TestRequestLink_RepeatForExistingUser_StillOK(t *testing.T) {
	r, sender := newTestStack()

	// Complete a sign-in so the user exists.
	do(r, http.MethodPost, "/auth/request-link", `{"email":"a@b.com"}`, "")
	rawToken := sender.lastToken(t)
	do(r, http.MethodGet, "/auth/verify?token="+rawToken, "", "")

	// Requesting again for the same address looks identical from outside.
	w := do(r, http.MethodPost, "/auth/request-link", `{"email":"a@b.com"}`, "")
	if w.Code != http.StatusOK {
		t.Errorf("repeat request-link status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Errorf("repeat request-link body = %q", w.Body.String())
	}
}
