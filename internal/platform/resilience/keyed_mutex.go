package resilience

import "sync"

// KeyedMutex provides one mutex per string key. Trade operations for the same
// user must not interleave, while operations for different users stay
// independent; locking on the user key gives exactly that boundary.
//
// Entries are reference-counted and removed once the last holder unlocks, so
// the map does not grow with the number of distinct keys ever seen.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

func (m *KeyedMutex) Lock(key string) {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &keyedLock{}
		m.locks[key] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()
}

func (m *KeyedMutex) Unlock(key string) {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		m.mu.Unlock()
		panic("resilience: unlock of unheld keyed mutex: " + key)
	}
	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()

	lock.mu.Unlock()
}
