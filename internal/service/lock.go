package service

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockWait is returned by LocalLocker when the wait budget runs out.
var ErrLockWait = errors.New("lock wait exceeded")

// Locker serializes work per key. The returned func releases the lock and
// is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// LocalLocker is an in-process keyed mutex. It only serializes callers
// inside one process; multi-instance deployments use the Redis lock.
type LocalLocker struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker returns a keyed mutex whose waiters give up after wait.
// A non-positive wait waits until ctx is done.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{wait: wait, slots: make(map[string]*lockSlot)}
}

// Lock blocks until key is held, ctx is done or the wait budget is spent.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	slot := l.acquireSlot(key)

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseSlot(key, slot)
		return nil, ctx.Err()
	case <-timeout:
		l.releaseSlot(key, slot)
		return nil, ErrLockWait
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.releaseSlot(key, slot)
		})
	}, nil
}

func (l *LocalLocker) acquireSlot(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *LocalLocker) releaseSlot(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}
