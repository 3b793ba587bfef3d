package traffic

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestTracker_Empty(t *testing.T) {
	tr := NewTracker(0)
	if n := tr.RequestCount(time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
	if e, total := tr.ErrorRate(time.Minute); e != 0 || total != 0 {
		t.Errorf("ErrorRate() = %d/%d, want 0/0", e, total)
	}
}

func TestTracker_CountsByOutcome(t *testing.T) {
	tr := NewTracker(0)
	tr.RecordSuccess()
	tr.RecordSuccess()
	tr.RecordError()
	tr.RecordDenied()

	if n := tr.RequestCount(time.Minute); n != 4 {
		t.Errorf("RequestCount() = %d, want 4", n)
	}
	if n := tr.DenialCount(time.Minute); n != 1 {
		t.Errorf("DenialCount() = %d, want 1", n)
	}
	errs, total := tr.ErrorRate(time.Minute)
	if errs != 1 || total != 3 {
		t.Errorf("ErrorRate() = %d/%d, want 1/3 (denials excluded)", errs, total)
	}
}

// TestTracker_Window verifies outcomes age out of the window by the injected clock.
func TestTracker_Window(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTrackerWithClock(time.Minute, clock)

	tr.RecordError()
	clock.Advance(40 * time.Second)
	tr.RecordSuccess()

	if n := tr.RequestCount(30 * time.Second); n != 1 {
		t.Errorf("RequestCount(30s) = %d, want 1", n)
	}
	if n := tr.RequestCount(time.Minute); n != 2 {
		t.Errorf("RequestCount(1m) = %d, want 2", n)
	}

	clock.Advance(30 * time.Second)
	tr.RecordDenied() // prunes the error recorded 70s ago
	if errs, _ := tr.ErrorRate(10 * time.Minute); errs != 0 {
		t.Errorf("ErrorRate() errors = %d after retention, want 0", errs)
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(0)
	tr.RecordSuccess()
	tr.RecordDenied()
	tr.Reset()
	if n := tr.RequestCount(time.Minute); n != 0 {
		t.Errorf("RequestCount() after Reset = %d, want 0", n)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.RecordSuccess()
			tr.RecordDenied()
		}()
	}
	wg.Wait()
	if n := tr.RequestCount(time.Minute); n != 100 {
		t.Errorf("RequestCount() = %d, want 100", n)
	}
}
