package traffic

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestStopSignal_Lifecycle(t *testing.T) {
	s := NewStopSignal()
	if s.IsActive() {
		t.Fatal("new signal should be idle")
	}
	if s.RequestStop() {
		t.Fatal("stopping an idle signal should be a no-op")
	}

	s.Activate()
	if !s.IsActive() {
		t.Fatal("signal should be active after Activate")
	}

	if !s.RequestStop() {
		t.Fatal("first RequestStop should perform the transition")
	}
	if s.IsActive() {
		t.Fatal("signal should be stopped")
	}
	if s.RequestStop() {
		t.Fatal("second RequestStop should be a no-op")
	}

	// A stopped signal is never reused.
	s.Activate()
	if s.IsActive() {
		t.Fatal("Activate must not revive a stopped signal")
	}

	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed after stop")
	}
}

func TestStopSignal_ConcurrentStop(t *testing.T) {
	s := NewStopSignal()
	s.Activate()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.RequestStop() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := wins.Load(); n != 1 {
		t.Errorf("%d callers performed the transition, want 1", n)
	}
}
