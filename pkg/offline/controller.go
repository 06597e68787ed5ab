package offline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mercator-hq/callisto/pkg/events"
	"mercator-hq/callisto/pkg/remote"
)

// ProbeFunc is the lightweight reachability check used for recovery.
// It should be cheap and must not count against the primary request budget.
type ProbeFunc func(ctx context.Context) error

// Config configures the controller.
type Config struct {
	// FailureThreshold is how many consecutive qualifying failures flip
	// the state to offline. Default 3.
	FailureThreshold int

	// ProbeInterval rate-limits recovery probing. Default 60s.
	ProbeInterval time.Duration

	// Probe is the reachability check. Required.
	Probe ProbeFunc

	// Notifier receives transition events. Defaults to a no-op.
	Notifier events.Notifier
}

// Controller tracks the online/offline mode flag. Safe for concurrent use.
type Controller struct {
	mu        sync.Mutex
	offline   bool
	failures  int
	lastProbe time.Time

	failureCount  int
	probeInterval time.Duration
	probe         ProbeFunc
	notifier      events.Notifier

	// now is replaceable for tests
	now func() time.Time
}

// New creates a controller in the online state.
func New(config Config) *Controller {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.ProbeInterval <= 0 {
		config.ProbeInterval = 60 * time.Second
	}
	if config.Notifier == nil {
		config.Notifier = events.NopNotifier{}
	}

	return &Controller{
		failureCount:  config.FailureThreshold,
		probeInterval: config.ProbeInterval,
		probe:         config.Probe,
		notifier:      config.Notifier,
		now:           time.Now,
	}
}

// Online reports whether the controller is in the online state.
func (c *Controller) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.offline
}

// Qualifies reports whether a failure counts toward the offline transition:
// anything suggesting the remote is unreachable or overloaded, as opposed
// to a client-side mistake.
func Qualifies(err error) bool {
	var netErr *remote.NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var rlErr *remote.RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}

	var srvErr *remote.ServerError
	if errors.As(err, &srvErr) {
		return true
	}

	// 403s ride along with rate limiting on this backend; 401 means the
	// credential is wrong and must surface.
	var authErr *remote.AuthError
	if errors.As(err, &authErr) {
		return authErr.StatusCode == http.StatusForbidden
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// RecordFailure feeds a failed network call into the state machine.
// Returns true if this failure flipped the controller offline.
func (c *Controller) RecordFailure(err error) bool {
	if !Qualifies(err) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	if c.offline || c.failures < c.failureCount {
		return false
	}

	c.offline = true
	offlineGauge.Set(1)
	slog.Warn("entering offline mode",
		"consecutive_failures", c.failures,
		"error", err,
	)
	c.notifier.Notify(events.Event{
		Type:    events.TypeOffline,
		Message: "connectivity lost, serving reads from cache",
		At:      c.now(),
	})
	return true
}

// RecordSuccess resets the failure run after a successful live call.
func (c *Controller) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
}

// MaybeProbe attempts a recovery probe if the controller is offline and the
// probe interval has elapsed. Returns true if the probe ran and succeeded,
// flipping the state back to online.
func (c *Controller) MaybeProbe(ctx context.Context) bool {
	c.mu.Lock()
	if !c.offline || c.probe == nil {
		c.mu.Unlock()
		return false
	}

	now := c.now()
	if !c.lastProbe.IsZero() && now.Sub(c.lastProbe) < c.probeInterval {
		c.mu.Unlock()
		return false
	}
	c.lastProbe = now
	c.mu.Unlock()

	// Probe outside the lock: it is a network call.
	probesTotal.Inc()
	if err := c.probe(ctx); err != nil {
		slog.Debug("recovery probe failed", "error", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.offline {
		// A concurrent probe already recovered.
		return true
	}

	c.offline = false
	c.failures = 0
	offlineGauge.Set(0)
	slog.Info("exiting offline mode")
	c.notifier.Notify(events.Event{
		Type:    events.TypeOnline,
		Message: "connectivity restored",
		At:      c.now(),
	})
	return true
}
