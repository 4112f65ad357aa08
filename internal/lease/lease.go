// Package lease provides per-key mutual exclusion around video ingestion.
package lease

import (
	"context"
	"errors"
	"sync"
)

// ErrLeaseHeld is returned when another holder already owns the lease for the key.
var ErrLeaseHeld = errors.New("lease already held")

// Locker hands out exclusive leases keyed by string.
// Acquire never waits: a held lease fails immediately with ErrLeaseHeld.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LocalLocker is an in-process Locker.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker creates a new in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Acquire takes the lease for key. The returned release func is idempotent.
func (l *LocalLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrLeaseHeld
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
