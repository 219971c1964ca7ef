package keylock

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	ring := NewRing()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := ring.Lock("account-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
}

func TestLockPairOrdersKeys(t *testing.T) {
	ring := NewRing()

	// Opposite acquisition orders must not deadlock.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := ring.LockPair("a", "b")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := ring.LockPair("b", "a")
			unlock()
		}()
	}
	wg.Wait()
}

func TestLockPairSameKeyLocksOnce(t *testing.T) {
	ring := NewRing()
	unlock := ring.LockPair("x", "x")
	unlock()

	// Still usable afterwards.
	unlock = ring.Lock("x")
	unlock()
}
