package dashboard

import (
	"context"
	"sync"
	"time"
)

// renderCall is one render that concurrent callers for the same key share.
type renderCall struct {
	done chan struct{}
	val  []byte
	err  error
}

// renderCoalescer runs at most one render per key at a time. Callers that
// arrive while a render is running wait for its result instead of starting
// their own, so a burst of identical cache misses renders once.
type renderCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*renderCall
	timeout  time.Duration
}

func newRenderCoalescer(timeout time.Duration) *renderCoalescer {
	return &renderCoalescer{
		inFlight: make(map[string]*renderCall),
		timeout:  timeout,
	}
}

// Do returns the result of fn for key, sharing it with concurrent callers.
// fn runs on a context detached from any single caller so one caller giving
// up does not fail the others; it is bounded by the coalescer timeout.
// shared reports whether the result came from another caller's render.
func (rc *renderCoalescer) Do(ctx context.Context, key string, fn func(context.Context) ([]byte, error)) (val []byte, shared bool, err error) {
	rc.mu.Lock()
	call, exists := rc.inFlight[key]
	if !exists {
		call = &renderCall{done: make(chan struct{})}
		rc.inFlight[key] = call
		go rc.run(ctx, key, call, fn)
	}
	rc.mu.Unlock()

	select {
	case <-call.done:
		return call.val, exists, call.err
	case <-ctx.Done():
		return nil, exists, ctx.Err()
	}
}

func (rc *renderCoalescer) run(ctx context.Context, key string, call *renderCall, fn func(context.Context) ([]byte, error)) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rc.timeout)
	defer cancel()

	call.val, call.err = fn(runCtx)

	rc.mu.Lock()
	delete(rc.inFlight, key)
	rc.mu.Unlock()
	close(call.done)
}
