package config

import "time"

// Config is the root configuration for Callisto.
type Config struct {
	// Repository identifies the remote repository this client works against.
	Repository RepositoryConfig `yaml:"repository"`

	// Remote configures the API transport.
	Remote RemoteConfig `yaml:"remote"`

	// Auth configures the credential source.
	Auth AuthConfig `yaml:"auth"`

	// Throttle configures local request pacing.
	Throttle ThrottleConfig `yaml:"throttle"`

	// Retry configures the failure retry policy.
	Retry RetryConfig `yaml:"retry"`

	// Cache configures the local read cache.
	Cache CacheConfig `yaml:"cache"`

	// Offline configures the offline-mode controller.
	Offline OfflineConfig `yaml:"offline"`

	// Client configures repository-level operation behavior.
	Client ClientConfig `yaml:"client"`

	// Conflict configures branch conflict handling.
	Conflict ConflictConfig `yaml:"conflict"`

	// Deploy configures deployment watching.
	Deploy DeployConfig `yaml:"deploy"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RepositoryConfig identifies the repository and its branches.
type RepositoryConfig struct {
	// Owner is the account or organization owning the repository.
	Owner string `yaml:"owner"`

	// Name is the repository name.
	Name string `yaml:"name"`

	// Branch is the working branch all operations target.
	Branch string `yaml:"branch"`

	// BaseBranch is the branch conflict scans compare against.
	BaseBranch string `yaml:"base_branch"`
}

// RemoteConfig configures the HTTP transport to the backend API.
type RemoteConfig struct {
	// BaseURL is the API root.
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-request network timeout.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent identifies this client in requests.
	UserAgent string `yaml:"user_agent"`
}

// AuthConfig configures where the bearer token comes from. Exactly one
// source is consulted, in order: Token, TokenFile, TokenEnv.
type AuthConfig struct {
	// Token is an inline bearer token. Discouraged outside tests.
	Token string `yaml:"token"`

	// TokenFile reads the token from a file.
	TokenFile string `yaml:"token_file"`

	// TokenEnv names an environment variable holding the token.
	TokenEnv string `yaml:"token_env"`
}

// ThrottleConfig configures local request pacing ceilings. This section
// participates in hot reload.
type ThrottleConfig struct {
	// MinInterval is the minimum spacing between any two requests.
	MinInterval time.Duration `yaml:"min_interval"`

	// PerMinute caps requests in any rolling 60s window.
	PerMinute int `yaml:"per_minute"`

	// PerHour caps requests in any rolling 3600s window.
	PerHour int `yaml:"per_hour"`

	// SafetyMargin pads computed window waits.
	SafetyMargin time.Duration `yaml:"safety_margin"`
}

// RetryConfig configures the retry policy for failed calls.
type RetryConfig struct {
	// MaxAttempts caps counted attempts for transient failures.
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration `yaml:"base_delay"`

	// MaxDelay caps any single backoff wait.
	MaxDelay time.Duration `yaml:"max_delay"`

	// ResetBuffer pads the wait past a reported rate-limit reset.
	ResetBuffer time.Duration `yaml:"reset_buffer"`
}

// CacheConfig configures the local read cache.
type CacheConfig struct {
	// TTL is how long an entry stays readable.
	TTL time.Duration `yaml:"ttl"`

	// MaxEntries bounds the cache size.
	MaxEntries int `yaml:"max_entries"`

	// JanitorSchedule is a cron expression for periodic expiry sweeps.
	// Empty disables the janitor.
	JanitorSchedule string `yaml:"janitor_schedule"`

	// Persist configures the optional on-disk mirror.
	Persist PersistConfig `yaml:"persist"`
}

// PersistConfig configures the SQLite cache mirror.
type PersistConfig struct {
	// Enabled turns the mirror on. Off by default; the cache is fully
	// functional in memory alone.
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

// OfflineConfig configures the offline-mode controller.
type OfflineConfig struct {
	// FailureThreshold is the consecutive qualifying failure count that
	// flips the client offline.
	FailureThreshold int `yaml:"failure_threshold"`

	// ProbeInterval rate-limits recovery probes.
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

// ClientConfig configures repository operation behavior.
type ClientConfig struct {
	// BatchSize bounds fan-out concurrency for multi-file reads.
	BatchSize int `yaml:"batch_size"`

	// BatchPause is the pause between read batches.
	BatchPause time.Duration `yaml:"batch_pause"`

	// WriteRetryAttempts caps version-conflict write retries.
	WriteRetryAttempts int `yaml:"write_retry_attempts"`

	// WriteRetryDelay is the base delay between conflict retries.
	WriteRetryDelay time.Duration `yaml:"write_retry_delay"`

	// FallbackMessage is served for offline reads with no cached copy.
	FallbackMessage string `yaml:"fallback_message"`
}

// ConflictConfig configures branch conflict handling.
type ConflictConfig struct {
	// AutoMerge permits automatic catch-up merges for strictly-behind
	// working branches. Off by default; everything else is always manual.
	AutoMerge bool `yaml:"auto_merge"`
}

// DeployConfig configures deployment watching and verification.
type DeployConfig struct {
	// PollInterval is the spacing between deployment listing polls.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Budget is the wall-clock limit for one watch.
	Budget time.Duration `yaml:"budget"`

	// VerifyMarkers are strings expected in the published content.
	VerifyMarkers []string `yaml:"verify_markers"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns the metrics listener on.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the metrics HTTP listen address.
	ListenAddress string `yaml:"listen_address"`

	// Path is the scrape path.
	Path string `yaml:"path"`
}
