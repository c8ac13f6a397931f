package session

import "sync"

// keyedMutex serializes operations per session id so a validate-and-renew
// cycle is a single atomic read-modify-write against the adapter. Locks for
// different keys never contend, and entries are removed as soon as the last
// holder releases them, so the map does not grow with the key space.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the mutex for key and returns the matching unlock func.
func (km *keyedMutex) lock(key string) func() {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[string]*keyLock)
	}
	l, ok := km.locks[key]
	if !ok {
		l = &keyLock{}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		km.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}
