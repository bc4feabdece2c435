package scheduler

import (
	"context"
	"sync"
)

// Locker provides per-key mutual exclusion for schedule executions
type Locker interface {
	// TryLock acquires the key without blocking. It returns false when
	// another holder owns it.
	TryLock(ctx context.Context, key string) (bool, error)

	// Unlock releases a key acquired by this process
	Unlock(ctx context.Context, key string) error
}

// LocalLocker is an in-process Locker
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// TryLock acquires the key if free
func (l *LocalLocker) TryLock(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return false, nil
	}
	l.held[key] = struct{}{}
	return true, nil
}

// Unlock releases the key
func (l *LocalLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; !busy {
		return ErrLockNotHeld
	}
	delete(l.held, key)
	return nil
}

var _ Locker = (*LocalLocker)(nil)
