package util

import "sync"

// KeyLock provides a mutex per string key. It is the serialization point for
// markets whose order types arrive through more than one lane: two consumers
// holding messages for the same market cannot run a matching pass concurrently.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyLock creates an empty KeyLock.
func NewKeyLock() *KeyLock {
	return &KeyLock{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for the given key, creating it on first use.
// Mutexes are never removed; the key space is the set of markets, which is
// small and stable for the lifetime of the process.
func (k *KeyLock) Lock(key string) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
}

// Unlock releases the mutex for the given key.
// Calling Unlock for a key that was never locked panics, same as sync.Mutex.
func (k *KeyLock) Unlock(key string) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	k.mu.Unlock()

	if !ok {
		panic("util: unlock of unknown key " + key)
	}
	lock.Unlock()
}
