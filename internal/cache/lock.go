package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockPrefix       = "lock:generation:"
	lockPollInterval = 50 * time.Millisecond
	lockReleaseWait  = 2 * time.Second
)

// ErrLockTimeout is returned when the lock could not be taken within the
// wait budget.
var ErrLockTimeout = errors.New("lock wait exceeded")

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// AccountLock serializes work per account across processes with
// SET NX PX. The TTL bounds how long a crashed holder blocks others.
type AccountLock struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewAccountLock returns a lock whose holders expire after ttl and whose
// waiters give up after wait.
func (c *Cache) NewAccountLock(ttl, wait time.Duration) *AccountLock {
	return &AccountLock{client: c.client, ttl: ttl, wait: wait}
}

// Lock blocks until the account's lock is held, ctx is done or the wait
// budget is spent. The returned func releases the lock.
func (l *AccountLock) Lock(ctx context.Context, accountID string) (func(), error) {
	key := lockPrefix + accountID
	token, err := lockToken()
	if err != nil {
		return nil, err
	}

	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}

func (l *AccountLock) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), lockReleaseWait)
	defer cancel()
	// An expired lock needs no release; the TTL already freed it.
	_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}

func lockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
