package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitAccountPrefix = "ratelimit:account:"
	rateLimitIPPrefix      = "ratelimit:ip:"
	rateLimitAccountTTL    = 120 * time.Second
	rateLimitIPTTL         = 10 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript refills and consumes atomically.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- bucket capacity
	local now = tonumber(ARGV[3])       -- seconds
	local ttl = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	tokens = math.min(burst, tokens + ((now - last_update) * rate))

	local allowed = 0
	local retry_after = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckAccountRateLimit consumes one request from the account's bucket.
// A ratePerMinute of 0 means unlimited.
func (c *Cache) CheckAccountRateLimit(ctx context.Context, accountID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute == 0 {
		return unlimited(burst), nil
	}
	return c.checkRateLimit(ctx, rateLimitAccountPrefix+accountID,
		float64(ratePerMinute)/60.0, burst, int(rateLimitAccountTTL.Seconds()))
}

// CheckIPRateLimit consumes one request from the IP's bucket.
// The IP is hashed before it becomes part of a key.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	return c.checkRateLimit(ctx, rateLimitIPPrefix+hashIP(ip),
		float64(ratePerSecond), burst, int(rateLimitIPTTL.Seconds()))
}

// checkRateLimit fails open: on Redis errors the request is allowed and the
// error is returned for logging.
func (c *Cache) checkRateLimit(ctx context.Context, key string, rate float64, burst, ttl int) (*RateLimitResult, error) {
	now := time.Now()

	result, err := tokenBucketScript.Run(ctx, c.client, []string{key},
		rate, burst, now.Unix(), ttl,
	).Int64Slice()
	if err != nil {
		return unlimited(burst), err
	}

	return &RateLimitResult{
		Allowed:    result[0] == 1,
		Remaining:  result[2],
		ResetAt:    now.Add(time.Duration(float64(time.Second) / rate)),
		RetryAfter: time.Duration(result[1]) * time.Second,
	}, nil
}

func unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   time.Now().Add(time.Minute),
	}
}

// hashIP returns 16 hex chars of the IP's SHA256.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
