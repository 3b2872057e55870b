// Package lock provides per-key mutual exclusion with try-lock semantics
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockHeld the key is locked by another owner
var ErrLockHeld = errors.New("lock is held by another owner")

// ReleaseFunc gives the lock back; safe to call once
type ReleaseFunc func(ctx context.Context) error

// Locker acquires key without waiting. The lock expires after ttl if never released.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// LocalLocker in-process locker for single instance deployments
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localEntry
	now  func() time.Time
	seq  uint64
}

type localEntry struct {
	owner   uint64
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]localEntry),
		now:  time.Now,
	}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrLockHeld
	}
	l.seq++
	owner := l.seq
	l.held[key] = localEntry{owner: owner, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.owner == owner {
			delete(l.held, key)
		}
		return nil
	}, nil
}
