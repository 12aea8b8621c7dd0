package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inkwell/inkwell/internal/model"
)

const (
	authCachePrefix = "auth:ctx:"
	authCacheTTL    = 5 * time.Minute
)

type cachedAuthContext struct {
	TokenID     string   `json:"token_id"`
	TokenPrefix string   `json:"token_prefix"`
	AccountID   string   `json:"account_id"`
	Plan        string   `json:"plan"`
	Scopes      []string `json:"scopes"`
}

// GetAuthContext returns the cached context for cacheKey, or nil on a miss.
// A corrupt entry is treated as a miss.
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authCachePrefix+cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auth context: %w", err)
	}

	var cached cachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		TokenID:     cached.TokenID,
		TokenPrefix: cached.TokenPrefix,
		AccountID:   cached.AccountID,
		Plan:        model.PlanID(cached.Plan),
		Scopes:      cached.Scopes,
		CacheKey:    cacheKey,
	}, nil
}

// SetAuthContext caches auth under cacheKey for the auth cache TTL, capped at
// the token's remaining lifetime.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext, expiresAt *time.Time) error {
	ttl := authCacheTTL
	if expiresAt != nil {
		if remaining := time.Until(*expiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(cachedAuthContext{
		TokenID:     auth.TokenID,
		TokenPrefix: auth.TokenPrefix,
		AccountID:   auth.AccountID,
		Plan:        string(auth.Plan),
		Scopes:      auth.Scopes,
	})
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, authCachePrefix+cacheKey, data, ttl).Err()
}

// DeleteAuthContext removes a cached auth context. Called on logout.
func (c *Cache) DeleteAuthContext(ctx context.Context, cacheKey string) error {
	return c.client.Del(ctx, authCachePrefix+cacheKey).Err()
}
