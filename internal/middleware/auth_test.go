package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/metrics"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository/memory"
	"github.com/inkwell/inkwell/internal/repository/storetest"
)

type mapAuthCache struct {
	mu      sync.Mutex
	entries map[string]*model.AuthContext
}

func newMapAuthCache() *mapAuthCache {
	return &mapAuthCache{entries: make(map[string]*model.AuthContext)}
}

func (c *mapAuthCache) GetAuthContext(_ context.Context, key string) (*model.AuthContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key], nil
}

func (c *mapAuthCache) SetAuthContext(_ context.Context, key string, a *model.AuthContext, _ *time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = a
	return nil
}

func (c *mapAuthCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type authFixture struct {
	store   *memory.Store
	account *model.Account
	token   string
	cache   *mapAuthCache
	metrics *metrics.InMemoryRecorder
	logs    *bytes.Buffer
	handler http.Handler
}

func newAuthFixture(t *testing.T, expiresAt *time.Time) *authFixture {
	t.Helper()

	store := memory.New()
	account := storetest.NewAccount(100)
	account.Plan = model.PlanPremium
	if err := store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	generated, err := auth.GenerateAccessToken(auth.EnvTest)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if err := store.CreateAccessToken(context.Background(), &model.AccessToken{
		ID:          "tok_1",
		AccountID:   account.ID,
		TokenHash:   generated.Hash,
		TokenPrefix: generated.Prefix,
		Scopes:      model.DefaultScopes,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}); err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}

	f := &authFixture{
		store:   store,
		account: account,
		token:   generated.Plaintext,
		cache:   newMapAuthCache(),
		metrics: metrics.NewInMemory(),
		logs:    &bytes.Buffer{},
	}
	f.handler = Auth(AuthConfig{
		Logger:   slog.New(slog.NewJSONHandler(f.logs, nil)),
		Tokens:   store,
		Accounts: store,
		Cache:    f.cache,
		Metrics:  f.metrics,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := auth.MustAuthFromContext(r.Context())
		_, _ = io.WriteString(w, a.AccountID+"|"+string(a.Plan))
	}))
	return f
}

func (f *authFixture) do(setup func(r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	setup(req)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestAuth_ValidToken(t *testing.T) {
	f := newAuthFixture(t, nil)

	for name, setup := range map[string]func(r *http.Request){
		"bearer":    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+f.token) },
		"x-api-key": func(r *http.Request) { r.Header.Set("X-API-Key", f.token) },
	} {
		t.Run(name, func(t *testing.T) {
			rec := f.do(setup)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if want := f.account.ID + "|premium"; rec.Body.String() != want {
				t.Errorf("body = %q, want %q", rec.Body.String(), want)
			}
		})
	}

	if f.cache.len() != 1 {
		t.Errorf("cache entries = %d, want 1", f.cache.len())
	}
	cached, _ := f.cache.GetAuthContext(context.Background(), auth.QuickHash(f.token))
	if cached == nil || cached.CacheKey != auth.QuickHash(f.token) {
		t.Errorf("cached context = %+v", cached)
	}
}

func TestAuth_Rejections(t *testing.T) {
	f := newAuthFixture(t, nil)
	_, other, _ := strings.Cut(strings.TrimPrefix(f.token, "iw_test_"), "_")

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + f.token},
		{"malformed", "Bearer not-a-token"},
		{"unknown prefix", "Bearer iw_test_000000_" + other},
		{"wrong secret", "Bearer " + f.token[:len(f.token)-1] + flipHex(f.token[len(f.token)-1])},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(func(r *http.Request) {
				if tt.header != "" {
					r.Header.Set("Authorization", tt.header)
				}
			})
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), `"code":"UNAUTHORIZED"`) {
				t.Errorf("unexpected body: %s", rec.Body.String())
			}
		})
	}

	if got := f.metrics.Snapshot().AuthFailures; got != uint64(len(tests)) {
		t.Errorf("auth failures = %d, want %d", got, len(tests))
	}
	if strings.Contains(f.logs.String(), f.token) {
		t.Error("token leaked into logs")
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	f := newAuthFixture(t, &past)

	rec := f.do(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+f.token) })
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if f.cache.len() != 0 {
		t.Error("expired token must not be cached")
	}
}

func TestAuth_RevokedToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	if err := f.store.RevokeAccessToken(context.Background(), "tok_1"); err != nil {
		t.Fatalf("RevokeAccessToken failed: %v", err)
	}

	rec := f.do(func(r *http.Request) { r.Header.Set("X-API-Key", f.token) })
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_MinDuration(t *testing.T) {
	handler := Auth(AuthConfig{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens:      memory.New(),
		Accounts:    memory.New(),
		MinDuration: 30 * time.Millisecond,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	start := time.Now()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("auth failure returned after %v, want >= 30ms", elapsed)
	}
}

func TestExtractToken(t *testing.T) {
	testCases := []struct {
		name   string
		bearer string
		apiKey string
		want   string
	}{
		{name: "bearer", bearer: "Bearer iw_live_abc123_secret", want: "iw_live_abc123_secret"},
		{name: "x-api-key", apiKey: "iw_live_abc123_secret", want: "iw_live_abc123_secret"},
		{name: "bearer wins", bearer: "Bearer first", apiKey: "second", want: "first"},
		{name: "none", want: ""},
		{name: "basic ignored", bearer: "Basic abc123", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.bearer != "" {
				req.Header.Set("Authorization", tc.bearer)
			}
			if tc.apiKey != "" {
				req.Header.Set("X-API-Key", tc.apiKey)
			}
			if got := extractToken(req); got != tc.want {
				t.Errorf("extractToken() = %q, want %q", got, tc.want)
			}
		})
	}
}

func flipHex(c byte) string {
	if c == '0' {
		return "1"
	}
	return "0"
}
