package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/remote"
)

// testPolicy returns a policy with deterministic jitter and recorded,
// non-blocking sleeps.
func testPolicy() (*Policy, *[]time.Duration) {
	sleeps := &[]time.Duration{}
	p := NewPolicy()
	p.jitter = func() float64 { return 0 }
	p.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	p.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return p, sleeps
}

func TestDo_SuccessFirstTry(t *testing.T) {
	p, sleeps := testPolicy()

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 1 || len(*sleeps) != 0 {
		t.Errorf("Expected 1 call and no sleeps, got %d calls, %d sleeps", calls, len(*sleeps))
	}
}

func TestDo_AuthTerminal(t *testing.T) {
	p, sleeps := testPolicy()

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return &remote.AuthError{Op: "get contents", StatusCode: 401, Message: "bad credentials"}
	})

	var authErr *remote.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected AuthError, got %v", err)
	}
	if calls != 1 || len(*sleeps) != 0 {
		t.Errorf("Auth failures must not retry: %d calls, %d sleeps", calls, len(*sleeps))
	}
}

func TestDo_ValidationTerminal(t *testing.T) {
	p, _ := testPolicy()

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return &remote.ValidationError{Op: "create tree", StatusCode: 422, Message: "invalid tree"}
	})

	var valErr *remote.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Validation failures must not retry, got %d calls", calls)
	}
}

func TestDo_PrimaryRateLimitWaitsToReset(t *testing.T) {
	p, sleeps := testPolicy()
	now := p.now()

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &remote.RateLimitError{
				Op:      "get contents",
				Primary: true,
				Reset:   now.Add(2 * time.Second),
				Message: "rate limit exhausted",
			}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success after reset wait, got %v", err)
	}
	if len(*sleeps) != 1 {
		t.Fatalf("Expected exactly one wait, got %d", len(*sleeps))
	}
	// Reset in 2s plus the 1s buffer.
	if (*sleeps)[0] != 3*time.Second {
		t.Errorf("Expected 3s wait (2s to reset + 1s buffer), got %s", (*sleeps)[0])
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestDo_PrimaryRateLimitDoesNotConsumeBudget(t *testing.T) {
	p, _ := testPolicy()
	now := p.now()

	// 5 consecutive primary rate limits, then success. With 3 counted
	// attempts this only succeeds if reset waits are uncounted.
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls <= 5 {
			return &remote.RateLimitError{Op: "op", Primary: true, Reset: now.Add(time.Second)}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 6 {
		t.Errorf("Expected 6 calls, got %d", calls)
	}
}

func TestDo_SecondaryThrottleHonorsRetryAfter(t *testing.T) {
	p, sleeps := testPolicy()

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &remote.RateLimitError{Op: "op", RetryAfter: 7 * time.Second, Message: "abuse detection"}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 7*time.Second {
		t.Errorf("Expected exact 7s retry-after wait, got %v", *sleeps)
	}
}

func TestDo_TransientExhaustsBudget(t *testing.T) {
	p, sleeps := testPolicy()

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return &remote.ServerError{Op: "op", StatusCode: 502, Message: "bad gateway"}
	})

	var attempts *AttemptsError
	if !errors.As(err, &attempts) {
		t.Fatalf("Expected AttemptsError, got %v", err)
	}
	if attempts.Attempts != 3 {
		t.Errorf("Expected 3 attempts reported, got %d", attempts.Attempts)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	// Two backoffs between three attempts.
	if len(*sleeps) != 2 {
		t.Fatalf("Expected 2 backoffs, got %d", len(*sleeps))
	}

	var srvErr *remote.ServerError
	if !errors.As(err, &srvErr) {
		t.Errorf("AttemptsError should wrap the original failure")
	}
}

func TestDo_BackoffGrowsPerClass(t *testing.T) {
	p, sleeps := testPolicy()

	calls := 0
	_ = p.Do(context.Background(), func(context.Context) error {
		calls++
		return &remote.ServerError{Op: "op", StatusCode: 500}
	})

	// Server class: base 1s, multiplier 2.0, zero jitter.
	want := []time.Duration{time.Second, 2 * time.Second}
	for i, w := range want {
		if (*sleeps)[i] != w {
			t.Errorf("Backoff %d: expected %s, got %s", i, w, (*sleeps)[i])
		}
	}

	// Network class ramps at 2.5x.
	p2, sleeps2 := testPolicy()
	_ = p2.Do(context.Background(), func(context.Context) error {
		return &remote.NetworkError{Op: "op", Cause: fmt.Errorf("connection refused")}
	})
	want2 := []time.Duration{time.Second, 2500 * time.Millisecond}
	for i, w := range want2 {
		if (*sleeps2)[i] != w {
			t.Errorf("Network backoff %d: expected %s, got %s", i, w, (*sleeps2)[i])
		}
	}
}

func TestDo_BackoffCapped(t *testing.T) {
	p, _ := testPolicy()
	p.jitter = func() float64 { return 0.999 }

	d := p.backoff(10, p.NetworkMultiplier)
	if d != p.MaxDelay {
		t.Errorf("Expected backoff capped at %s, got %s", p.MaxDelay, d)
	}
}

func TestDo_UnclassifiedTerminal(t *testing.T) {
	p, _ := testPolicy()

	calls := 0
	sentinel := fmt.Errorf("something odd")
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected sentinel error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Unclassified failures must not retry, got %d calls", calls)
	}
}

func TestDo_RateLimitSurfacesPastDeadline(t *testing.T) {
	p, sleeps := testPolicy()
	p.now = time.Now // the deadline comparison needs the real clock
	now := time.Now()

	ctx, cancel := context.WithDeadline(context.Background(), now.Add(30*time.Second))
	defer cancel()

	err := p.Do(ctx, func(context.Context) error {
		return &remote.RateLimitError{Op: "op", Primary: true, Reset: now.Add(5 * time.Minute)}
	})

	var rlErr *remote.RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("Expected the rate limit error surfaced, got %v", err)
	}
	if len(*sleeps) != 0 {
		t.Errorf("Must not sleep past the caller's deadline")
	}
}

func TestDo_Cancelled(t *testing.T) {
	p := NewPolicy()
	p.jitter = func() float64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Do(ctx, func(context.Context) error {
		return &remote.ServerError{Op: "op", StatusCode: 500}
	})

	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
