package throttle

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Limits holds the three throttle ceilings.
// Zero values fall back to defaults at construction time.
type Limits struct {
	// MinInterval is the minimum spacing between consecutive requests.
	MinInterval time.Duration

	// PerMinute caps requests in any rolling 60s window.
	PerMinute int

	// PerHour caps requests in any rolling 3600s window. Keep this below
	// the backend's published ceiling so the local governor trips first.
	PerHour int

	// SafetyMargin is added to every computed wait to absorb clock skew
	// between the wait computation and the re-check.
	SafetyMargin time.Duration
}

// DefaultLimits returns the standard ceilings.
func DefaultLimits() Limits {
	return Limits{
		MinInterval:  100 * time.Millisecond,
		PerMinute:    60,
		PerHour:      1000,
		SafetyMargin: 50 * time.Millisecond,
	}
}

// withDefaults fills unset fields.
func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MinInterval <= 0 {
		l.MinInterval = def.MinInterval
	}
	if l.PerMinute <= 0 {
		l.PerMinute = def.PerMinute
	}
	if l.PerHour <= 0 {
		l.PerHour = def.PerHour
	}
	if l.SafetyMargin <= 0 {
		l.SafetyMargin = def.SafetyMargin
	}
	return l
}

// Throttle is the local request-rate governor. It keeps an ordered ledger
// of admitted request timestamps and delays callers until admitting one
// more request stays under every ceiling.
type Throttle struct {
	mu     sync.Mutex
	limits Limits
	ledger []time.Time
	last   time.Time

	// now is replaceable for tests
	now func() time.Time
}

// New creates a throttle with the given ceilings.
func New(limits Limits) *Throttle {
	return &Throttle{
		limits: limits.withDefaults(),
		now:    time.Now,
	}
}

// SetLimits replaces the ceilings at runtime. Waiting callers pick up the
// new values on their next check.
func (t *Throttle) SetLimits(limits Limits) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.limits = limits.withDefaults()
	slog.Info("throttle limits updated",
		"min_interval", t.limits.MinInterval,
		"per_minute", t.limits.PerMinute,
		"per_hour", t.limits.PerHour,
	)
}

// Limits returns the current ceilings.
func (t *Throttle) Limits() Limits {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limits
}

// Pending returns the number of requests currently counted in the rolling
// one-hour window.
func (t *Throttle) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(t.now())
	return len(t.ledger)
}

// Admit blocks until one more request can be issued without exceeding any
// ceiling, then records the request in the ledger. It never rejects; the
// only error it returns is the context's, when the caller cancels while
// waiting.
func (t *Throttle) Admit(ctx context.Context) error {
	for {
		t.mu.Lock()

		now := t.now()
		t.pruneLocked(now)
		wait := t.waitLocked(now)

		if wait <= 0 {
			t.ledger = append(t.ledger, now)
			t.last = now
			t.mu.Unlock()
			admitsTotal.Inc()
			return nil
		}

		t.mu.Unlock()

		waitsTotal.Inc()
		waitSeconds.Observe(wait.Seconds())
		slog.Debug("throttle delaying request", "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// waitLocked computes the delay before one more request may be admitted.
// Zero or negative means admit immediately. Caller must hold the lock.
func (t *Throttle) waitLocked(now time.Time) time.Duration {
	var wait time.Duration

	// Minimum spacing since the last admitted request.
	if !t.last.IsZero() {
		if d := t.last.Add(t.limits.MinInterval).Sub(now); d > wait {
			wait = d
		}
	}

	// Rolling windows: when a window is full, wait for the oldest counted
	// request to age out, plus the safety margin.
	if d := t.windowWaitLocked(now, time.Minute, t.limits.PerMinute); d > wait {
		wait = d
	}
	if d := t.windowWaitLocked(now, time.Hour, t.limits.PerHour); d > wait {
		wait = d
	}

	return wait
}

// windowWaitLocked returns the wait imposed by a single rolling window.
func (t *Throttle) windowWaitLocked(now time.Time, window time.Duration, limit int) time.Duration {
	cutoff := now.Add(-window)

	// The ledger is ordered, so find the first entry inside the window.
	first := -1
	for i, ts := range t.ledger {
		if ts.After(cutoff) {
			first = i
			break
		}
	}
	if first == -1 {
		return 0
	}

	inWindow := len(t.ledger) - first
	if inWindow < limit {
		return 0
	}

	// The window frees a slot when its oldest counted request ages out.
	oldest := t.ledger[first]
	return oldest.Add(window).Sub(now) + t.limits.SafetyMargin
}

// pruneLocked drops ledger entries older than the largest window.
// Caller must hold the lock.
func (t *Throttle) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(t.ledger) && !t.ledger[i].After(cutoff) {
		i++
	}
	if i > 0 {
		t.ledger = append(t.ledger[:0], t.ledger[i:]...)
	}
}
