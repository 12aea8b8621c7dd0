package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/metrics"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository"
)

// AuthCache stores resolved auth contexts keyed by a hash of the token.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext, expiresAt *time.Time) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Tokens   repository.TokenStore
	Accounts repository.AccountStore
	// Cache is optional; nil disables auth context caching.
	Cache   AuthCache
	Metrics metrics.Recorder
	// MinDuration pads every auth attempt so failures and successes take
	// the same time. Zero disables padding.
	MinDuration time.Duration
}

// Auth returns a middleware that authenticates API requests by access
// token and injects the auth context into the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			authCtx, reason := authenticate(r, cfg)

			if d := cfg.MinDuration - time.Since(start); d > 0 {
				time.Sleep(d)
			}

			if authCtx == nil {
				cfg.Metrics.IncAuthFailure()
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
		})
	}
}

// authenticate resolves the request's token. On failure it returns a nil
// context and a log-only reason.
func authenticate(r *http.Request, cfg AuthConfig) (*model.AuthContext, string) {
	ctx := r.Context()

	token := extractToken(r)
	if token == "" {
		return nil, "missing_token"
	}
	parsed, err := auth.ParseAccessToken(token)
	if err != nil {
		return nil, "invalid_format"
	}

	cacheKey := auth.QuickHash(token)
	if cfg.Cache != nil {
		if cached, err := cfg.Cache.GetAuthContext(ctx, cacheKey); err != nil {
			cfg.Logger.Warn("auth cache read failed", slog.String("error", err.Error()))
		} else if cached != nil {
			return cached, ""
		}
	}

	candidates, err := cfg.Tokens.GetAccessTokensByPrefix(ctx, parsed.Prefix)
	if err != nil {
		cfg.Logger.Error("token lookup failed",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(ctx)),
		)
		return nil, "lookup_error"
	}

	// Several tokens can share a prefix; only the hash tells them apart.
	var matched *model.AccessToken
	for _, candidate := range candidates {
		if ok, err := auth.VerifyPassword(token, candidate.TokenHash); err == nil && ok {
			matched = candidate
			break
		}
	}
	if matched == nil {
		return nil, "invalid_token"
	}
	if !matched.IsUsable(time.Now()) {
		return nil, "expired_token"
	}

	account, err := cfg.Accounts.GetAccountByID(ctx, matched.AccountID)
	if err != nil {
		return nil, "account_unavailable"
	}

	authCtx := &model.AuthContext{
		TokenID:     matched.ID,
		TokenPrefix: matched.TokenPrefix,
		AccountID:   account.ID,
		Plan:        account.Plan,
		Scopes:      matched.Scopes,
		CacheKey:    cacheKey,
	}

	if cfg.Cache != nil {
		if err := cfg.Cache.SetAuthContext(ctx, cacheKey, authCtx, matched.ExpiresAt); err != nil {
			cfg.Logger.Warn("auth cache write failed", slog.String("error", err.Error()))
		}
	}

	go func(id string) {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = cfg.Tokens.UpdateAccessTokenLastUsed(bg, id)
	}(matched.ID)

	return authCtx, ""
}

// extractToken reads "Authorization: Bearer <token>" or "X-API-Key".
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// writeAuthError uses one body for every failure to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing access token")
}
