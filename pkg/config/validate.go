package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g.,
	// "repository.owner").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access to
// all field errors.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateRepository(&cfg.Repository)...)
	errs = append(errs, validateRemote(&cfg.Remote)...)
	errs = append(errs, validateThrottle(&cfg.Throttle)...)
	errs = append(errs, validateRetry(&cfg.Retry)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateRepository(cfg *RepositoryConfig) []FieldError {
	var errs []FieldError

	if cfg.Owner == "" {
		errs = append(errs, FieldError{
			Field:   "repository.owner",
			Message: "owner is required",
		})
	}
	if cfg.Name == "" {
		errs = append(errs, FieldError{
			Field:   "repository.name",
			Message: "name is required",
		})
	}
	for _, invalid := range []string{" ", "..", "~", "^", ":"} {
		if strings.Contains(cfg.Branch, invalid) {
			errs = append(errs, FieldError{
				Field:   "repository.branch",
				Message: fmt.Sprintf("branch name contains invalid sequence %q", invalid),
			})
			break
		}
	}
	return errs
}

func validateRemote(cfg *RemoteConfig) []FieldError {
	var errs []FieldError

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "remote.base_url",
			Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.BaseURL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, FieldError{
			Field:   "remote.base_url",
			Message: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme),
		})
	}
	return errs
}

func validateThrottle(cfg *ThrottleConfig) []FieldError {
	var errs []FieldError

	if cfg.PerHour < cfg.PerMinute {
		errs = append(errs, FieldError{
			Field:   "throttle.per_hour",
			Message: fmt.Sprintf("per-hour ceiling (%d) cannot be below the per-minute ceiling (%d)", cfg.PerHour, cfg.PerMinute),
		})
	}
	return errs
}

func validateRetry(cfg *RetryConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxDelay < cfg.BaseDelay {
		errs = append(errs, FieldError{
			Field:   "retry.max_delay",
			Message: fmt.Sprintf("max delay (%s) cannot be below the base delay (%s)", cfg.MaxDelay, cfg.BaseDelay),
		})
	}
	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	if cfg.Persist.Enabled && cfg.Persist.Path == "" {
		errs = append(errs, FieldError{
			Field:   "cache.persist.path",
			Message: "path is required when persistence is enabled",
		})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error; got %q", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be json or text; got %q", cfg.Logging.Format),
		})
	}
	return errs
}
