package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"mercator-hq/callisto/pkg/remote"
)

// Policy is a retry policy value object: attempt budget, per-class backoff
// multipliers, and delay bounds. The zero value is not usable; construct
// with NewPolicy.
type Policy struct {
	// MaxAttempts is the counted attempt budget for transient failures.
	MaxAttempts int

	// BaseDelay is the first backoff delay.
	BaseDelay time.Duration

	// MaxDelay caps every computed backoff delay.
	MaxDelay time.Duration

	// ResetBuffer is added to primary rate-limit reset waits.
	ResetBuffer time.Duration

	// ServerMultiplier ramps backoff for 5xx responses.
	ServerMultiplier float64

	// NetworkMultiplier ramps backoff for network and timeout failures.
	NetworkMultiplier float64

	// RateLimitMultiplier ramps backoff for rate-limit responses that
	// carry no machine-readable reset or retry-after.
	RateLimitMultiplier float64

	// jitter returns a random fraction in [0, 1); replaceable for tests
	jitter func() float64

	// sleep waits cancellably; replaceable for tests
	sleep func(ctx context.Context, d time.Duration) error

	// now is replaceable for tests
	now func() time.Time
}

// NewPolicy returns the standard policy: 3 counted attempts, 1s base delay,
// 30s cap, 1s reset buffer.
func NewPolicy() *Policy {
	return &Policy{
		MaxAttempts:         3,
		BaseDelay:           time.Second,
		MaxDelay:            30 * time.Second,
		ResetBuffer:         time.Second,
		ServerMultiplier:    2.0,
		NetworkMultiplier:   2.5,
		RateLimitMultiplier: 3.0,
		jitter:              rand.Float64,
		sleep:               sleepCtx,
		now:                 time.Now,
	}
}

// AttemptsError reports that the counted attempt budget was exhausted.
// It wraps the most recent failure.
type AttemptsError struct {
	// Attempts is the number of counted attempts made.
	Attempts int

	// Err is the most recent failure.
	Err error
}

// Error implements the error interface.
func (e *AttemptsError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the underlying error for error chain support.
func (e *AttemptsError) Unwrap() error {
	return e.Err
}

// Do executes op, retrying per the policy. On success it returns nil. On a
// terminal failure it returns the classified error unchanged. On budget
// exhaustion it returns an AttemptsError wrapping the last failure.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 1

	for {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait, counted, retryable, class := p.classify(err, attempt)
		if !retryable {
			return err
		}
		if counted && attempt >= p.MaxAttempts {
			exhaustedTotal.Inc()
			return &AttemptsError{Attempts: attempt, Err: err}
		}

		// A rate-limit wait that would outlive the caller's deadline is
		// surfaced instead of absorbed.
		if deadline, ok := ctx.Deadline(); ok && p.now().Add(wait).After(deadline) {
			return err
		}

		slog.Debug("retrying operation",
			"attempt", attempt,
			"counted", counted,
			"wait", wait,
			"error", err,
		)
		retriesTotal.WithLabelValues(class).Inc()
		waitSeconds.Observe(wait.Seconds())

		if serr := p.sleep(ctx, wait); serr != nil {
			return serr
		}

		if counted {
			attempt++
		}
	}
}

// classify maps a failure to (wait, counted, retryable, class).
func (p *Policy) classify(err error, attempt int) (time.Duration, bool, bool, string) {
	var authErr *remote.AuthError
	if errors.As(err, &authErr) {
		return 0, false, false, "auth"
	}

	var valErr *remote.ValidationError
	if errors.As(err, &valErr) {
		return 0, false, false, "validation"
	}

	var rlErr *remote.RateLimitError
	if errors.As(err, &rlErr) {
		switch {
		case rlErr.Primary && !rlErr.Reset.IsZero():
			wait := rlErr.Reset.Sub(p.now()) + p.ResetBuffer
			if wait < 0 {
				wait = p.ResetBuffer
			}
			return wait, false, true, "rate_limit"
		case rlErr.RetryAfter > 0:
			return rlErr.RetryAfter, false, true, "rate_limit"
		default:
			return p.backoff(attempt, p.RateLimitMultiplier), true, true, "rate_limit"
		}
	}

	var srvErr *remote.ServerError
	if errors.As(err, &srvErr) {
		return p.backoff(attempt, p.ServerMultiplier), true, true, "server"
	}

	var netErr *remote.NetworkError
	if errors.As(err, &netErr) {
		return p.backoff(attempt, p.NetworkMultiplier), true, true, "network"
	}

	// Unclassified failures are not retried.
	return 0, false, false, "unclassified"
}

// backoff computes base * multiplier^(attempt-1) + jitter, capped. Jitter
// spans up to one base delay (0..1s at the default base).
func (p *Policy) backoff(attempt int, multiplier float64) time.Duration {
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(multiplier, float64(attempt-1)))
	delay += time.Duration(p.jitter() * float64(p.BaseDelay))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
