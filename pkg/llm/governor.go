package llm

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Governor caps how often an expensive call may happen: at most calls per fixed
// window of period. The window opens with the first call after the previous one
// closed. Callers that exceed the budget block until the window closes.
type Governor struct {
	calls  int
	period time.Duration
	now    func() time.Time

	mu    sync.Mutex
	start time.Time
	used  int
}

// NewGovernor returns an unlimited governor when calls or period is not positive.
func NewGovernor(calls int, period time.Duration) *Governor {
	return &Governor{calls: calls, period: period, now: time.Now}
}

func (g *Governor) unlimited() bool {
	return g == nil || g.calls <= 0 || g.period <= 0
}

// reserve takes a slot in the current window. When the window is full it returns
// how long to wait before the next window opens.
func (g *Governor) reserve() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.start.IsZero() || now.Sub(g.start) >= g.period {
		g.start = now
		g.used = 0
	}
	if g.used < g.calls {
		g.used++
		return 0, true
	}
	return g.period - now.Sub(g.start), false
}

// Wait blocks until a call is allowed or ctx is done.
func (g *Governor) Wait(ctx context.Context) error {
	if g.unlimited() {
		return nil
	}
	for {
		wait, ok := g.reserve()
		if ok {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Wrap(ctx.Err(), "llm governor")
		case <-t.C:
		}
	}
}

// Allow reports whether a call may happen now without waiting, consuming budget if so.
func (g *Governor) Allow() bool {
	if g.unlimited() {
		return true
	}
	_, ok := g.reserve()
	return ok
}
