package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locker serializes turns per character. TryLock reports false without blocking when the
// lock is held; the returned token releases it. storage.RedisStore implements Locker for
// multi-process deployments.
type Locker interface {
	TryLock(ctx context.Context, characterID int64, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, characterID int64, token string) error
}

// LocalLocker is an in-process Locker.
type LocalLocker struct {
	mu   sync.Mutex
	held map[int64]localLock
	now  func() time.Time
}

type localLock struct {
	token   string
	expires time.Time
}

var _ Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[int64]localLock), now: time.Now}
}

func (l *LocalLocker) TryLock(_ context.Context, characterID int64, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[characterID]; ok && now.Before(cur.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[characterID] = localLock{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

// Unlock is a no-op when token no longer owns the lock.
func (l *LocalLocker) Unlock(_ context.Context, characterID int64, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.held[characterID]; ok && cur.token == token {
		delete(l.held, characterID)
	}
	return nil
}
