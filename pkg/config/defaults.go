package config

import "time"

// Default values for configuration fields.
const (
	// Remote defaults
	DefaultBaseURL   = "https://api.github.com"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "callisto"

	// Repository defaults
	DefaultBranch     = "main"
	DefaultBaseBranch = "main"

	// Auth defaults
	DefaultTokenEnv = "CALLISTO_TOKEN"

	// Throttle defaults
	DefaultMinInterval  = 100 * time.Millisecond
	DefaultPerMinute    = 60
	DefaultPerHour      = 1000
	DefaultSafetyMargin = 50 * time.Millisecond

	// Retry defaults
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultResetBuffer = time.Second

	// Cache defaults
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCacheMaxEntries = 50
	DefaultJanitorSchedule = "@every 1m"
	DefaultPersistPath     = "data/cache.db"

	// Offline defaults
	DefaultFailureThreshold = 3
	DefaultProbeInterval    = 60 * time.Second

	// Client defaults
	DefaultBatchSize          = 5
	DefaultBatchPause         = 500 * time.Millisecond
	DefaultWriteRetryAttempts = 3
	DefaultWriteRetryDelay    = 500 * time.Millisecond
	DefaultFallbackMessage    = "content temporarily unavailable\n"

	// Deploy defaults
	DefaultPollInterval = 10 * time.Second
	DefaultDeployBudget = 5 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsEnabled       = false
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
)

// ApplyDefaults fills zero-valued fields with their defaults. Explicitly
// configured values are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg.Repository.Branch == "" {
		cfg.Repository.Branch = DefaultBranch
	}
	if cfg.Repository.BaseBranch == "" {
		cfg.Repository.BaseBranch = DefaultBaseBranch
	}

	if cfg.Remote.BaseURL == "" {
		cfg.Remote.BaseURL = DefaultBaseURL
	}
	if cfg.Remote.Timeout <= 0 {
		cfg.Remote.Timeout = DefaultTimeout
	}
	if cfg.Remote.UserAgent == "" {
		cfg.Remote.UserAgent = DefaultUserAgent
	}

	if cfg.Auth.Token == "" && cfg.Auth.TokenFile == "" && cfg.Auth.TokenEnv == "" {
		cfg.Auth.TokenEnv = DefaultTokenEnv
	}

	if cfg.Throttle.MinInterval <= 0 {
		cfg.Throttle.MinInterval = DefaultMinInterval
	}
	if cfg.Throttle.PerMinute <= 0 {
		cfg.Throttle.PerMinute = DefaultPerMinute
	}
	if cfg.Throttle.PerHour <= 0 {
		cfg.Throttle.PerHour = DefaultPerHour
	}
	if cfg.Throttle.SafetyMargin <= 0 {
		cfg.Throttle.SafetyMargin = DefaultSafetyMargin
	}

	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = DefaultBaseDelay
	}
	if cfg.Retry.MaxDelay <= 0 {
		cfg.Retry.MaxDelay = DefaultMaxDelay
	}
	if cfg.Retry.ResetBuffer <= 0 {
		cfg.Retry.ResetBuffer = DefaultResetBuffer
	}

	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Cache.JanitorSchedule == "" {
		cfg.Cache.JanitorSchedule = DefaultJanitorSchedule
	}
	if cfg.Cache.Persist.Enabled && cfg.Cache.Persist.Path == "" {
		cfg.Cache.Persist.Path = DefaultPersistPath
	}

	if cfg.Offline.FailureThreshold <= 0 {
		cfg.Offline.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Offline.ProbeInterval <= 0 {
		cfg.Offline.ProbeInterval = DefaultProbeInterval
	}

	if cfg.Client.BatchSize <= 0 {
		cfg.Client.BatchSize = DefaultBatchSize
	}
	if cfg.Client.BatchPause <= 0 {
		cfg.Client.BatchPause = DefaultBatchPause
	}
	if cfg.Client.WriteRetryAttempts <= 0 {
		cfg.Client.WriteRetryAttempts = DefaultWriteRetryAttempts
	}
	if cfg.Client.WriteRetryDelay <= 0 {
		cfg.Client.WriteRetryDelay = DefaultWriteRetryDelay
	}
	if cfg.Client.FallbackMessage == "" {
		cfg.Client.FallbackMessage = DefaultFallbackMessage
	}

	if cfg.Deploy.PollInterval <= 0 {
		cfg.Deploy.PollInterval = DefaultPollInterval
	}
	if cfg.Deploy.Budget <= 0 {
		cfg.Deploy.Budget = DefaultDeployBudget
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
