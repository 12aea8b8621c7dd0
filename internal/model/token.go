package model

import (
	"slices"
	"time"
)

// Scope constants for access token authorization.
const (
	ScopeContentRead  = "content:read"
	ScopeContentWrite = "content:write"
	ScopeBilling      = "billing"
	ScopeAdmin        = "admin"
)

// ValidScopes contains all valid scope values.
var ValidScopes = []string{ScopeContentRead, ScopeContentWrite, ScopeBilling, ScopeAdmin}

// DefaultScopes are granted to tokens issued at login or registration.
var DefaultScopes = []string{ScopeContentRead, ScopeContentWrite, ScopeBilling}

// RateLimitTier constants.
const (
	TierFree       = "free"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
	TierUnlimited  = "unlimited"
)

// RateLimitConfig defines rate limit parameters per tier.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// TierConfigs maps tier names to their rate limit configurations.
var TierConfigs = map[string]RateLimitConfig{
	TierFree:       {RequestsPerMinute: 30, Burst: 5},
	TierPremium:    {RequestsPerMinute: 120, Burst: 20},
	TierEnterprise: {RequestsPerMinute: 600, Burst: 50},
	TierUnlimited:  {RequestsPerMinute: 0, Burst: 0}, // 0 means unlimited
}

// AccessToken is an opaque bearer credential bound to an account.
type AccessToken struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"account_id"`
	TokenHash   string     `json:"-"` // Never serialize
	TokenPrefix string     `json:"token_prefix"`
	Scopes      []string   `json:"scopes"`
	Name        string     `json:"name,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsRevoked returns true if the token has been revoked.
func (t *AccessToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired returns true if the token is past its expiry.
func (t *AccessToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// IsUsable reports whether the token can authenticate a request.
func (t *AccessToken) IsUsable(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

// HasScope checks if the token has a specific scope.
// Admin scope implies all other scopes.
func (t *AccessToken) HasScope(scope string) bool {
	return hasScope(t.Scopes, scope)
}

// AuthContext holds authenticated request context.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	TokenID     string
	TokenPrefix string
	AccountID   string
	Plan        PlanID
	Scopes      []string
	// CacheKey identifies the cached copy of this context, if any.
	CacheKey string
}

// HasScope checks if the auth context has a specific scope.
func (a *AuthContext) HasScope(scope string) bool {
	return hasScope(a.Scopes, scope)
}

// RateLimitTier returns the tier used to rate limit this caller.
func (a *AuthContext) RateLimitTier() string {
	if slices.Contains(a.Scopes, ScopeAdmin) {
		return TierUnlimited
	}
	return a.Plan.RateLimitTier()
}

func hasScope(scopes []string, scope string) bool {
	if slices.Contains(scopes, ScopeAdmin) {
		return true
	}
	return slices.Contains(scopes, scope)
}

// IsValidScope reports whether scope is a known scope.
func IsValidScope(scope string) bool {
	return slices.Contains(ValidScopes, scope)
}

// IssuedToken is returned once when a token is created; Token is plaintext.
type IssuedToken struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"` // Plaintext - display once only!
	Prefix    string     `json:"token_prefix"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
