package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	// AllowedOrigins lists exact origins or "*.domain" subdomain patterns.
	// Empty denies every cross-origin request.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

// DefaultCORSConfig returns the API's CORS policy for origins.
// Credentials are never allowed: auth travels in headers, not cookies.
func DefaultCORSConfig(origins []string) CORSConfig {
	return CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-API-Key",
			RequestIDHeader,
		},
		ExposedHeaders: []string{
			RequestIDHeader,
			"Retry-After",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		MaxAge: 86400,
	}
}

// CORS handles Cross-Origin Resource Sharing, answering preflights itself.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}
	matcher := newOriginMatcher(cfg.AllowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if !matcher.allowed(origin) {
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				// The browser blocks the response without CORS headers.
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			if exposed != "" {
				w.Header().Set("Access-Control-Expose-Headers", exposed)
			}

			if preflight {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				if maxAge != "" {
					w.Header().Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type originMatcher struct {
	exact    map[string]bool
	suffixes []string // ".example.com" for "*.example.com"
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{exact: make(map[string]bool, len(origins))}
	for _, o := range origins {
		o = strings.ToLower(strings.TrimSpace(o))
		if strings.HasPrefix(o, "*.") {
			m.suffixes = append(m.suffixes, o[1:])
			continue
		}
		m.exact[o] = true
	}
	return m
}

// allowed matches exact origins, or hosts strictly below a wildcard domain:
// "*.example.com" admits "https://app.example.com" but not
// "https://evilexample.com" or "https://example.com".
func (m originMatcher) allowed(origin string) bool {
	origin = strings.ToLower(origin)
	if m.exact[origin] {
		return true
	}

	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	for _, suffix := range m.suffixes {
		if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			return true
		}
	}
	return false
}
