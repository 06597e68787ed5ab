package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mercator-hq/callisto/pkg/cache"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/conflict"
	"mercator-hq/callisto/pkg/deploy"
	"mercator-hq/callisto/pkg/events"
	"mercator-hq/callisto/pkg/offline"
	"mercator-hq/callisto/pkg/remote"
	"mercator-hq/callisto/pkg/repo"
	"mercator-hq/callisto/pkg/retry"
	"mercator-hq/callisto/pkg/telemetry/logging"
	"mercator-hq/callisto/pkg/telemetry/metrics"
	"mercator-hq/callisto/pkg/throttle"
)

// app wires the full component stack from configuration. Commands build
// one per invocation and close it on exit.
type app struct {
	cfg      *config.Config
	remote   *remote.Client
	throttle *throttle.Throttle
	client   *repo.Client
	analyzer *conflict.Analyzer
	monitor  *deploy.Monitor
	verifier *deploy.Verifier

	backend *cache.SQLiteBackend
	janitor *cache.Janitor
	metrics *metrics.Server
	watcher *config.Watcher
}

// newApp loads configuration and assembles the component stack.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}

	logLevel := cfg.Telemetry.Logging.Level
	if verbose {
		logLevel = "debug"
	}
	if _, err := logging.Setup(logging.Config{
		Level:  logLevel,
		Format: cfg.Telemetry.Logging.Format,
	}); err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}

	token, err := cfg.Token()
	if err != nil {
		return nil, cli.NewConfigError("auth", err.Error())
	}

	rc, err := remote.NewClient(remote.ClientConfig{
		BaseURL:   cfg.Remote.BaseURL,
		UserAgent: cfg.Remote.UserAgent,
		Timeout:   cfg.Remote.Timeout,
	}, remote.StaticCredentials(token))
	if err != nil {
		return nil, fmt.Errorf("creating transport: %w", err)
	}

	th := throttle.New(throttle.Limits{
		MinInterval:  cfg.Throttle.MinInterval,
		PerMinute:    cfg.Throttle.PerMinute,
		PerHour:      cfg.Throttle.PerHour,
		SafetyMargin: cfg.Throttle.SafetyMargin,
	})

	rp := retry.NewPolicy()
	rp.MaxAttempts = cfg.Retry.MaxAttempts
	rp.BaseDelay = cfg.Retry.BaseDelay
	rp.MaxDelay = cfg.Retry.MaxDelay
	rp.ResetBuffer = cfg.Retry.ResetBuffer

	a := &app{cfg: cfg, remote: rc, throttle: th}

	cacheConfig := cache.Config{
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
	}
	if cfg.Cache.Persist.Enabled {
		backend, err := cache.NewSQLiteBackend(cfg.Cache.Persist.Path)
		if err != nil {
			return nil, fmt.Errorf("opening cache backend: %w", err)
		}
		a.backend = backend
		cacheConfig.Backend = backend
	}
	ca := cache.New(cacheConfig)

	if cfg.Cache.JanitorSchedule != "" {
		janitor, err := cache.StartJanitor(ca, cfg.Cache.JanitorSchedule)
		if err != nil {
			a.Close()
			return nil, cli.NewConfigError("cache.janitor_schedule", err.Error())
		}
		a.janitor = janitor
	}

	notifier := events.NotifierFunc(func(e events.Event) {
		fmt.Fprintf(os.Stderr, "• %s\n", e.Message)
	})

	oc := offline.New(offline.Config{
		FailureThreshold: cfg.Offline.FailureThreshold,
		ProbeInterval:    cfg.Offline.ProbeInterval,
		Probe:            rc.Ping,
		Notifier:         notifier,
	})

	client, err := repo.New(repo.Config{
		Repository: remote.RepositoryRef{
			Owner:  cfg.Repository.Owner,
			Name:   cfg.Repository.Name,
			Branch: cfg.Repository.Branch,
		},
		BatchSize:          cfg.Client.BatchSize,
		BatchPause:         cfg.Client.BatchPause,
		WriteRetryAttempts: cfg.Client.WriteRetryAttempts,
		WriteRetryDelay:    cfg.Client.WriteRetryDelay,
		FallbackPayload:    []byte(cfg.Client.FallbackMessage),
	}, rc, th, rp, ca, oc)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client

	analyzer, err := conflict.New(client, notifier)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.analyzer = analyzer

	monitor, err := deploy.New(client, deploy.Config{
		Interval: cfg.Deploy.PollInterval,
		Budget:   cfg.Deploy.Budget,
		Notifier: notifier,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.monitor = monitor

	verifier, err := deploy.NewVerifier(client)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.verifier = verifier

	if cfg.Telemetry.Metrics.Enabled {
		a.metrics = metrics.NewServer(cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
		a.metrics.Start()
	}

	return a, nil
}

// watchConfig hot-reloads the throttle ceilings when the configuration
// file changes. Used by long-running commands only.
func (a *app) watchConfig(ctx context.Context) error {
	watcher, err := config.NewWatcher(cfgFile, 0)
	if err != nil {
		return err
	}
	a.watcher = watcher

	go watcher.Watch(ctx, func(cfg *config.Config) {
		a.throttle.SetLimits(throttle.Limits{
			MinInterval:  cfg.Throttle.MinInterval,
			PerMinute:    cfg.Throttle.PerMinute,
			PerHour:      cfg.Throttle.PerHour,
			SafetyMargin: cfg.Throttle.SafetyMargin,
		})
		slog.Info("throttle ceilings reloaded",
			"per_minute", cfg.Throttle.PerMinute,
			"per_hour", cfg.Throttle.PerHour,
		)
	})
	return nil
}

// Close releases everything the app owns.
func (a *app) Close() {
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.janitor != nil {
		a.janitor.Stop()
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.metrics.Shutdown(ctx)
	}
	if a.backend != nil {
		a.backend.Close()
	}
}
