// Package lock serialises read-modify-write cycles on a single record.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock could not be taken within the wait timeout.
var ErrTimeout = errors.New("timed out waiting for record lock")

// Release gives a held lock back.
type Release func() error

// Locker hands out exclusive per-key locks.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

func Key(kind, id string) string {
	return kind + ":" + id
}

type localEntry struct {
	sem  chan struct{}
	refs int
}

// Local is an in-process keyed mutex for single-instance deployments.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	wait    time.Duration
}

func NewLocal(wait time.Duration) *Local {
	return &Local{entries: make(map[string]*localEntry), wait: wait}
}

func (l *Local) Acquire(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		return func() error {
			once.Do(func() {
				<-entry.sem
				l.done(key, entry)
			})
			return nil
		}, nil
	case <-timer.C:
		l.done(key, entry)
		return nil, ErrTimeout
	case <-ctx.Done():
		l.done(key, entry)
		return nil, ctx.Err()
	}
}

func (l *Local) done(key string, entry *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}
