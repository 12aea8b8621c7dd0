package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/cache"
	"github.com/inkwell/inkwell/internal/model"
)

// RateLimiter consumes tokens from per-account and per-IP buckets.
type RateLimiter interface {
	CheckAccountRateLimit(ctx context.Context, accountID string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	// Per-account limits by plan tier, after Auth.
	APIEnabled bool
	// Per-IP limits on unauthenticated auth routes.
	AuthEnabled bool
	AuthRPS     int
	AuthBurst   int
}

// RateLimitAPI limits authenticated requests per account using the plan's
// tier. Limiter errors fail open.
func RateLimitAPI(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if !cfg.APIEnabled || authCtx == nil {
				next.ServeHTTP(w, r)
				return
			}

			tier := authCtx.RateLimitTier()
			limits := model.TierConfigs[tier]
			if limits.RequestsPerMinute == 0 {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Limiter.CheckAccountRateLimit(r.Context(), authCtx.AccountID, limits.RequestsPerMinute, limits.Burst)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("account_id", authCtx.AccountID),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, limits.RequestsPerMinute, result.Remaining, result.ResetAt)
			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("type", "account"),
					slog.String("account_id", authCtx.AccountID),
					slog.String("tier", tier),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP limits requests per client IP. Used on register and login to
// slow credential stuffing.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.AuthEnabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.AuthRPS, cfg.AuthBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("type", "ip"),
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		"Rate limit exceeded. Retry after "+strconv.Itoa(seconds)+" seconds.")
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
