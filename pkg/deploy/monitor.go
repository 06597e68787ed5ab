package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/callisto/pkg/events"
	"mercator-hq/callisto/pkg/remote"
	"mercator-hq/callisto/pkg/repo"
)

// State is the terminal outcome of a deployment watch.
type State string

const (
	// StateCompleted means the matched deployment finished building.
	StateCompleted State = "completed"

	// StateFailed means the matched deployment finished with an error.
	StateFailed State = "failed"

	// StateTimeout means the budget elapsed before a terminal status.
	StateTimeout State = "timeout"

	// StateCancelled means the caller cancelled the watch.
	StateCancelled State = "cancelled"
)

// Result describes how a watch ended.
type Result struct {
	State State

	// Deployment is the matched deployment, nil if none was ever matched.
	Deployment *remote.Deployment

	// Elapsed is the wall-clock duration of the watch.
	Elapsed time.Duration

	// Polls counts listing queries issued.
	Polls int
}

// Config tunes a Monitor. Zero values fall back to defaults.
type Config struct {
	// Interval between polls. Default 10s.
	Interval time.Duration

	// Budget is the wall-clock limit for the whole watch. Default 5m.
	Budget time.Duration

	Notifier events.Notifier
}

// Monitor polls the publish pipeline until a deployment for a given commit
// reaches a terminal status or the budget runs out.
type Monitor struct {
	client   *repo.Client
	interval time.Duration
	budget   time.Duration
	notifier events.Notifier

	// test seams
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a monitor over the given repository client.
func New(client *repo.Client, config Config) (*Monitor, error) {
	if client == nil {
		return nil, fmt.Errorf("deploy: repository client is required")
	}
	if config.Interval <= 0 {
		config.Interval = 10 * time.Second
	}
	if config.Budget <= 0 {
		config.Budget = 5 * time.Minute
	}
	if config.Notifier == nil {
		config.Notifier = events.NopNotifier{}
	}

	return &Monitor{
		client:   client,
		interval: config.Interval,
		budget:   config.Budget,
		notifier: config.Notifier,
		now:      time.Now,
		sleep:    sleepCtx,
	}, nil
}

// Wait blocks until a deployment referencing commitSHA reaches a terminal
// status, the budget elapses, or ctx is cancelled. The watch itself never
// returns an error for backend flakiness; a failed poll is logged and the
// next interval tries again.
func (m *Monitor) Wait(ctx context.Context, commitSHA string, progress events.ProgressFunc) (*Result, error) {
	start := m.now()
	deadline := start.Add(m.budget)
	result := &Result{}

	notify(progress, 0, "waiting for deployment")

	for {
		result.Polls++
		matched, err := m.poll(ctx, commitSHA)
		if err != nil {
			if ctx.Err() != nil {
				result.State = StateCancelled
				result.Elapsed = m.now().Sub(start)
				return result, ctx.Err()
			}
			slog.Warn("deployment poll failed",
				"commit", commitSHA,
				"poll", result.Polls,
				"error", err,
			)
		}

		if matched != nil {
			if result.Deployment == nil {
				slog.Info("deployment matched",
					"commit", commitSHA,
					"deployment_id", matched.ID,
					"status", matched.Status,
				)
			}
			result.Deployment = matched

			if matched.Terminal() {
				result.Elapsed = m.now().Sub(start)
				if matched.Status == remote.DeploymentCompleted {
					result.State = StateCompleted
					notify(progress, 100, "deployment completed")
				} else {
					result.State = StateFailed
					notify(progress, 100, "deployment failed")
				}
				m.notifyEvent(result, commitSHA)
				return result, nil
			}
		}

		elapsed := m.now().Sub(start)
		if !m.now().Add(m.interval).Before(deadline) {
			result.State = StateTimeout
			result.Elapsed = elapsed
			notify(progress, 100, "deployment watch timed out")
			m.notifyEvent(result, commitSHA)
			return result, nil
		}

		notify(progress, progressPct(elapsed, m.budget), pollMessage(result))
		if err := m.sleep(ctx, m.interval); err != nil {
			result.State = StateCancelled
			result.Elapsed = m.now().Sub(start)
			return result, err
		}
	}
}

// poll lists deployments and returns the one referencing commitSHA, if any.
func (m *Monitor) poll(ctx context.Context, commitSHA string) (*remote.Deployment, error) {
	deployments, err := m.client.ListDeployments(ctx)
	if err != nil {
		return nil, err
	}
	pollsTotal.Inc()

	for i := range deployments {
		if deployments[i].Commit == commitSHA {
			return &deployments[i], nil
		}
	}
	return nil, nil
}

func (m *Monitor) notifyEvent(result *Result, commitSHA string) {
	watchesTotal.WithLabelValues(string(result.State)).Inc()
	m.notifier.Notify(events.Event{
		Type:    events.TypeDeployment,
		Message: fmt.Sprintf("deployment watch for %s ended: %s", commitSHA, result.State),
		At:      m.now(),
		Fields: map[string]string{
			"commit": commitSHA,
			"state":  string(result.State),
			"polls":  fmt.Sprintf("%d", result.Polls),
		},
	})
}

// progressPct maps elapsed time onto 0..95; 100 is reserved for terminal
// notifications.
func progressPct(elapsed, budget time.Duration) int {
	if budget <= 0 {
		return 0
	}
	pct := int(95 * elapsed / budget)
	if pct > 95 {
		pct = 95
	}
	return pct
}

func pollMessage(result *Result) string {
	if result.Deployment == nil {
		return "waiting for deployment to appear"
	}
	return fmt.Sprintf("deployment %d is %s", result.Deployment.ID, result.Deployment.Status)
}

func notify(progress events.ProgressFunc, pct int, message string) {
	if progress != nil {
		progress(pct, message)
	}
}

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
