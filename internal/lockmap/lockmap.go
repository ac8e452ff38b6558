// Package lockmap provides a table of mutexes keyed by resource name. The
// scheduling engine serializes read-compute-commit sequences per machine, and
// availability mutation per (machine, date), through this table.
package lockmap

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWaitExceeded is returned when a lock could not be acquired within the
// caller's wait budget. Callers are expected to retry once.
var ErrWaitExceeded = errors.New("lockmap: wait for key exceeded")

type entry struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

// Map is a lazily populated table of per-key locks. Entries are dropped once
// the last holder or waiter releases them, so the table does not grow with
// the history of keys seen.
type Map struct {
	mu   sync.Mutex
	keys map[string]*entry
}

// New creates an empty lock table.
func New() *Map {
	return &Map{keys: make(map[string]*entry)}
}

func (m *Map) get(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.keys[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		e.ch <- struct{}{}
		m.keys[key] = e
	}
	e.refs++
	return e
}

func (m *Map) put(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.keys, key)
	}
}

// Acquire blocks until the key's lock is held, the context is cancelled, or
// the wait budget elapses. A zero wait means block until ctx is done. The
// returned release function must be called exactly once.
func (m *Map) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	e := m.get(key)

	var timeout <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-e.ch:
		var once sync.Once
		release := func() {
			once.Do(func() {
				e.ch <- struct{}{}
				m.put(key, e)
			})
		}
		return release, nil
	case <-timeout:
		m.put(key, e)
		return nil, ErrWaitExceeded
	case <-ctx.Done():
		m.put(key, e)
		return nil, ctx.Err()
	}
}

// Len reports the number of live keys, for tests.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}
