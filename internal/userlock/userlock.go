// Package userlock serializes work on a single user's aggregate.
package userlock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type entry struct {
	// sem has capacity one; holding the token means holding the lock.
	sem  chan struct{}
	refs int
}

// Locker is a keyed mutex. Entries exist only while some goroutine holds or
// waits for the key, so the registry never grows past the set of active users.
type Locker struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

// New returns an empty Locker.
func New() *Locker {
	return &Locker{entries: make(map[uuid.UUID]*entry)}
}

// Lock blocks until the user's lock is held or ctx is done. On success the
// returned function releases the lock; it must be called exactly once.
func (l *Locker) Lock(ctx context.Context, userID uuid.UUID) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[userID]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				l.release(userID, e)
			})
		}, nil
	case <-ctx.Done():
		l.release(userID, e)
		return nil, ctx.Err()
	}
}

// Do runs fn while holding the user's lock.
func (l *Locker) Do(ctx context.Context, userID uuid.UUID, fn func() error) error {
	unlock, err := l.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// Len reports how many keys currently have holders or waiters.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Locker) release(userID uuid.UUID, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, userID)
	}
}
