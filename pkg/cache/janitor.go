package cache

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Janitor periodically sweeps expired entries out of the cache. Expiry is
// otherwise lazy, so entries never read again would linger until evicted
// for capacity.
type Janitor struct {
	cron *cron.Cron
}

// StartJanitor schedules a sweep of the cache on the given cron spec
// (e.g. "@every 1m"). The janitor runs until Stop is called.
func StartJanitor(c *Cache, schedule string) (*Janitor, error) {
	if schedule == "" {
		schedule = "@every 1m"
	}

	runner := cron.New()
	_, err := runner.AddFunc(schedule, func() {
		if dropped := c.Sweep(); dropped > 0 {
			slog.Debug("cache janitor sweep", "dropped", dropped)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}

	runner.Start()
	return &Janitor{cron: runner}, nil
}

// Stop halts the sweep schedule. Any in-flight sweep completes.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
