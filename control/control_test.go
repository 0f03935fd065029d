package control

import (
	"sync"
	"testing"
)

// TestShutdown_IsSticky validates the one-way latch behavior
func TestShutdown_IsSticky(t *testing.T) {
	Reset()
	if Stopping() {
		t.Fatalf("fresh state must not be stopping")
	}

	Shutdown()
	if !Stopping() {
		t.Fatalf("Shutdown must raise the flag")
	}

	// Second call is a no-op, flag stays raised
	Shutdown()
	if !Stopping() {
		t.Fatalf("flag must stay raised after repeat Shutdown")
	}
	Reset()
}

// TestShutdown_ConcurrentRaisers validates racing Shutdown callers against
// concurrent pollers
func TestShutdown_ConcurrentRaisers(t *testing.T) {
	Reset()
	defer Reset()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Shutdown()
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = Stopping()
		}()
	}
	wg.Wait()

	if !Stopping() {
		t.Fatalf("flag must be raised after concurrent Shutdown calls")
	}
}
