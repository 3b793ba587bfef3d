// Package traffic keeps sliding windows of request outcomes for the health check.
package traffic

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultRetention is how long outcomes are kept when NewTracker is given zero.
const DefaultRetention = 5 * time.Minute

// Tracker records request outcomes: served, failed with a server error, or
// denied by the rate limiter. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	retention time.Duration
	successes []time.Time
	failures  []time.Time
	denials   []time.Time
}

// NewTracker returns a Tracker on the real clock.
func NewTracker(retention time.Duration) *Tracker {
	return NewTrackerWithClock(retention, clockwork.NewRealClock())
}

// NewTrackerWithClock returns a Tracker that reads time from clock.
func NewTrackerWithClock(retention time.Duration, clock clockwork.Clock) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{clock: clock, retention: retention}
}

// RecordSuccess records a request answered without a server error.
func (t *Tracker) RecordSuccess() { t.record(&t.successes) }

// RecordError records a request that ended in a 5xx.
func (t *Tracker) RecordError() { t.record(&t.failures) }

// RecordDenied records a rate-limit denial (429).
func (t *Tracker) RecordDenied() { t.record(&t.denials) }

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// RequestCount returns successes, errors and denials within the window.
func (t *Tracker) RequestCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock.Now().Add(-window)
	return countSince(t.successes, cutoff) + countSince(t.failures, cutoff) + countSince(t.denials, cutoff)
}

// DenialCount returns the number of denials within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.denials, t.clock.Now().Add(-window))
}

// ErrorRate returns (errors, total) within the window. Denials are not counted.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock.Now().Add(-window)
	errors = countSince(t.failures, cutoff)
	return errors, errors + countSince(t.successes, cutoff)
}

// Reset drops all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successes, t.failures, t.denials = nil, nil, nil
}

// countSince counts timestamps at or after cutoff. times is in ascending order.
func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for i := len(times) - 1; i >= 0 && !times[i].Before(cutoff); i-- {
		n++
	}
	return n
}

// pruneLocked drops timestamps older than the retention period.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.retention)
	for _, slice := range []*[]time.Time{&t.successes, &t.failures, &t.denials} {
		times := *slice
		i := 0
		for i < len(times) && times[i].Before(cutoff) {
			i++
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
}
