package auth

import (
	"context"

	"github.com/inkwell/inkwell/internal/model"
)

type contextKey string

const authContextKey contextKey = "auth_context"

// ContextWithAuth adds AuthContext to the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext retrieves AuthContext from the context, or nil.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, _ := ctx.Value(authContextKey).(*model.AuthContext)
	return auth
}

// MustAuthFromContext retrieves AuthContext and panics if the auth
// middleware has not run.
func MustAuthFromContext(ctx context.Context) *model.AuthContext {
	auth := AuthFromContext(ctx)
	if auth == nil {
		panic("auth context not found - ensure auth middleware is applied")
	}
	return auth
}

// AccountIDFromContext returns the authenticated account ID, or "".
func AccountIDFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.AccountID
	}
	return ""
}

// TokenIDFromContext returns the authenticating token ID, or "".
func TokenIDFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.TokenID
	}
	return ""
}
