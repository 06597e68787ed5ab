package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "callisto.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

const minimalConfig = `
repository:
  owner: acme
  name: site
`

func TestLoadConfig_Minimal(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Repository.Owner != "acme" || cfg.Repository.Name != "site" {
		t.Errorf("Unexpected repository: %+v", cfg.Repository)
	}
	if cfg.Repository.Branch != DefaultBranch {
		t.Errorf("Expected default branch, got %q", cfg.Repository.Branch)
	}
	if cfg.Remote.BaseURL != DefaultBaseURL {
		t.Errorf("Expected default base URL, got %q", cfg.Remote.BaseURL)
	}
	if cfg.Throttle.MinInterval != DefaultMinInterval {
		t.Errorf("Expected default min interval, got %s", cfg.Throttle.MinInterval)
	}
	if cfg.Throttle.PerMinute != DefaultPerMinute || cfg.Throttle.PerHour != DefaultPerHour {
		t.Errorf("Unexpected throttle defaults: %+v", cfg.Throttle)
	}
	if cfg.Cache.TTL != DefaultCacheTTL || cfg.Cache.MaxEntries != DefaultCacheMaxEntries {
		t.Errorf("Unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Offline.FailureThreshold != DefaultFailureThreshold {
		t.Errorf("Unexpected offline defaults: %+v", cfg.Offline)
	}
	if cfg.Auth.TokenEnv != DefaultTokenEnv {
		t.Errorf("Expected default token env, got %q", cfg.Auth.TokenEnv)
	}
}

func TestLoadConfig_ExplicitValuesKept(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
repository:
  owner: acme
  name: site
  branch: work
  base_branch: develop
throttle:
  min_interval: 250ms
  per_minute: 30
  per_hour: 500
cache:
  ttl: 10m
  max_entries: 100
deploy:
  poll_interval: 5s
  budget: 2m
  verify_markers: ["portal", "v2"]
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Throttle.MinInterval != 250*time.Millisecond || cfg.Throttle.PerMinute != 30 {
		t.Errorf("Explicit throttle values lost: %+v", cfg.Throttle)
	}
	if cfg.Cache.TTL != 10*time.Minute || cfg.Cache.MaxEntries != 100 {
		t.Errorf("Explicit cache values lost: %+v", cfg.Cache)
	}
	if cfg.Deploy.Budget != 2*time.Minute || len(cfg.Deploy.VerifyMarkers) != 2 {
		t.Errorf("Explicit deploy values lost: %+v", cfg.Deploy)
	}
	if cfg.Repository.BaseBranch != "develop" {
		t.Errorf("Explicit base branch lost: %q", cfg.Repository.BaseBranch)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Expected an error for a missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "repository: [not a map"))
	if err == nil {
		t.Fatal("Expected an error for malformed YAML")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
repository:
  owner: ""
  name: ""
remote:
  base_url: "not a url"
telemetry:
  logging:
    level: loud
`))
	if err == nil {
		t.Fatal("Expected validation errors")
	}

	var valErr ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %T: %v", err, err)
	}
	if len(valErr.Errors) < 4 {
		t.Errorf("Expected at least 4 field errors, got %d: %v", len(valErr.Errors), valErr)
	}

	fields := make(map[string]bool)
	for _, fe := range valErr.Errors {
		fields[fe.Field] = true
	}
	for _, want := range []string{"repository.owner", "repository.name", "remote.base_url", "telemetry.logging.level"} {
		if !fields[want] {
			t.Errorf("Expected a field error for %s, got %v", want, valErr)
		}
	}
}

func TestValidate_ThrottleCeilingOrder(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
repository:
  owner: acme
  name: site
throttle:
  per_minute: 100
  per_hour: 50
`))
	if err == nil || !strings.Contains(err.Error(), "throttle.per_hour") {
		t.Errorf("Expected a throttle ceiling error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CALLISTO_REPOSITORY_BRANCH", "hotfix")
	t.Setenv("CALLISTO_THROTTLE_PER_MINUTE", "15")
	t.Setenv("CALLISTO_TELEMETRY_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}
	if cfg.Repository.Branch != "hotfix" {
		t.Errorf("Expected branch override, got %q", cfg.Repository.Branch)
	}
	if cfg.Throttle.PerMinute != 15 {
		t.Errorf("Expected per-minute override, got %d", cfg.Throttle.PerMinute)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Expected logging level override, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestEnvOverrides_InvalidValueRevalidated(t *testing.T) {
	t.Setenv("CALLISTO_TELEMETRY_LOGGING_LEVEL", "shouting")

	_, err := LoadConfigWithEnvOverrides(writeConfig(t, minimalConfig))
	if err == nil {
		t.Fatal("Expected validation to reject the override")
	}
}

func TestToken_Sources(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		cfg := &Config{Auth: AuthConfig{Token: "inline-token"}}
		token, err := cfg.Token()
		if err != nil || token != "inline-token" {
			t.Errorf("Expected inline token, got %q, %v", token, err)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		if err := os.WriteFile(path, []byte("file-token\n"), 0o600); err != nil {
			t.Fatalf("Failed to write token file: %v", err)
		}
		cfg := &Config{Auth: AuthConfig{TokenFile: path}}
		token, err := cfg.Token()
		if err != nil || token != "file-token" {
			t.Errorf("Expected trimmed file token, got %q, %v", token, err)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("CALLISTO_TEST_TOKEN", "env-token")
		cfg := &Config{Auth: AuthConfig{TokenEnv: "CALLISTO_TEST_TOKEN"}}
		token, err := cfg.Token()
		if err != nil || token != "env-token" {
			t.Errorf("Expected env token, got %q, %v", token, err)
		}
	})

	t.Run("env unset", func(t *testing.T) {
		cfg := &Config{Auth: AuthConfig{TokenEnv: "CALLISTO_DEFINITELY_UNSET"}}
		if _, err := cfg.Token(); err == nil {
			t.Error("Expected an error for an unset token variable")
		}
	})

	t.Run("no source", func(t *testing.T) {
		cfg := &Config{}
		if _, err := cfg.Token(); err == nil {
			t.Error("Expected an error with no token source")
		}
	})
}
