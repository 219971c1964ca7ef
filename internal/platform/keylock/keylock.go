// Package keylock provides named mutexes for per-account serializability.
package keylock

import "sync"

// Ring hands out one mutex per key so every read-then-write verb on an
// account executes as a single unit. Mutexes are never evicted; the key
// space is bounded by the player population.
type Ring struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRing creates an empty lock ring.
func NewRing() *Ring {
	return &Ring{locks: map[string]*sync.Mutex{}}
}

func (r *Ring) mutex(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[key]
	if !ok {
		m = &sync.Mutex{}
		r.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key and returns its unlock function.
func (r *Ring) Lock(key string) func() {
	m := r.mutex(key)
	m.Lock()
	return m.Unlock
}

// LockPair acquires both keys in lexicographic order so cross-account
// operations cannot deadlock against each other. Equal keys lock once.
func (r *Ring) LockPair(a, b string) func() {
	if a == b {
		return r.Lock(a)
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	unlockFirst := r.Lock(first)
	unlockSecond := r.Lock(second)
	return func() {
		unlockSecond()
		unlockFirst()
	}
}
