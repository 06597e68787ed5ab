package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow the
// naming convention CALLISTO_SECTION_FIELD and always take precedence over
// file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// Token resolves the bearer token from the configured source, in order:
// inline token, token file, environment variable.
func (c *Config) Token() (string, error) {
	if c.Auth.Token != "" {
		return c.Auth.Token, nil
	}
	if c.Auth.TokenFile != "" {
		data, err := os.ReadFile(c.Auth.TokenFile)
		if err != nil {
			return "", fmt.Errorf("reading token file %q: %w", c.Auth.TokenFile, err)
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return "", fmt.Errorf("token file %q is empty", c.Auth.TokenFile)
		}
		return token, nil
	}
	if c.Auth.TokenEnv != "" {
		if token := os.Getenv(c.Auth.TokenEnv); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("environment variable %s is not set", c.Auth.TokenEnv)
	}
	return "", fmt.Errorf("no token source configured")
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format
// CALLISTO_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Repository overrides
	if val := os.Getenv("CALLISTO_REPOSITORY_OWNER"); val != "" {
		cfg.Repository.Owner = val
	}
	if val := os.Getenv("CALLISTO_REPOSITORY_NAME"); val != "" {
		cfg.Repository.Name = val
	}
	if val := os.Getenv("CALLISTO_REPOSITORY_BRANCH"); val != "" {
		cfg.Repository.Branch = val
	}
	if val := os.Getenv("CALLISTO_REPOSITORY_BASE_BRANCH"); val != "" {
		cfg.Repository.BaseBranch = val
	}

	// Remote overrides
	if val := os.Getenv("CALLISTO_REMOTE_BASE_URL"); val != "" {
		cfg.Remote.BaseURL = val
	}
	if val := os.Getenv("CALLISTO_REMOTE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Remote.Timeout = d
		}
	}

	// Auth overrides
	if val := os.Getenv("CALLISTO_AUTH_TOKEN"); val != "" {
		cfg.Auth.Token = val
	}
	if val := os.Getenv("CALLISTO_AUTH_TOKEN_FILE"); val != "" {
		cfg.Auth.TokenFile = val
	}

	// Throttle overrides
	if val := os.Getenv("CALLISTO_THROTTLE_MIN_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Throttle.MinInterval = d
		}
	}
	if val := os.Getenv("CALLISTO_THROTTLE_PER_MINUTE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Throttle.PerMinute = i
		}
	}
	if val := os.Getenv("CALLISTO_THROTTLE_PER_HOUR"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Throttle.PerHour = i
		}
	}

	// Conflict overrides
	if val := os.Getenv("CALLISTO_CONFLICT_AUTO_MERGE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Conflict.AutoMerge = b
		}
	}

	// Telemetry overrides
	if val := os.Getenv("CALLISTO_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
}
