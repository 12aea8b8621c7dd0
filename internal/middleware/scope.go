package middleware

import (
	"net/http"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/model"
)

// RequireScope returns middleware that enforces scope requirements.
// Must be applied after Auth. Any one of required is sufficient, and admin
// satisfies every scope.
func RequireScope(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			for _, scope := range required {
				if authCtx.HasScope(scope) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "FORBIDDEN",
				"Insufficient permissions. Required scope: "+required[0])
		})
	}
}

// RequireContentRead guards history endpoints.
func RequireContentRead() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeContentRead)
}

// RequireContentWrite guards generation.
func RequireContentWrite() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeContentWrite)
}

// RequireBilling guards order creation and payment verification.
func RequireBilling() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeBilling)
}

// RequireAdmin guards operational endpoints.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeAdmin)
}
