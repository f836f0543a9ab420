package scheduling

import (
	"sync"

	"dispatch/internal/core/domain/model/kernel"
)

// KeyedMutex serializes work per key. The lifecycle handlers use it to make
// timer callbacks, agent reports and API calls touching the same delivery
// run one at a time, so each one reads fresh state before acting.
//
// Entries are reference-counted and removed when the last holder unlocks, so
// the map does not grow with the number of deliveries ever seen.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[kernel.UUID]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[kernel.UUID]*keyedLock)}
}

// Lock blocks until the key's lock is acquired and returns the matching
// unlock function. The unlock function must be called exactly once.
func (km *KeyedMutex) Lock(key kernel.UUID) func() {
	km.mu.Lock()
	entry, ok := km.locks[key]
	if !ok {
		entry = &keyedLock{}
		km.locks[key] = entry
	}
	entry.refs++
	km.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			km.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(km.locks, key)
			}
			km.mu.Unlock()
		})
	}
}
