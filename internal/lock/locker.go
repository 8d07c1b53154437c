// Package lock provides the per-file mutual exclusion used by the storage
// backend. A Locker hands out one exclusive lock per key; readers and writers
// are not distinguished.
package lock

import (
	"context"
	"sync"
)

// Unlock releases a lock obtained from a Locker. It is safe to call once.
type Unlock func()

type Locker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Local is an in-process Locker. Each key owns a one-slot channel so that a
// waiting caller can still give up through its context.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

var _ Locker = (*Local)(nil)

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
