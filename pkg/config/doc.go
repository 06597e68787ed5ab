// Package config provides configuration management for Callisto.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("callisto.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("callisto.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CALLISTO_SECTION_FIELD.
// For example:
//
//   - CALLISTO_AUTH_TOKEN overrides auth.token
//   - CALLISTO_REPOSITORY_OWNER overrides repository.owner
//   - CALLISTO_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides
// earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watch observes the configuration file and re-applies the throttle ceilings
// on change, so request pacing can be tuned without restarting. Only the
// throttle section participates in hot reload; everything else requires a
// restart.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation
// includes required field checks (repository owner and name), range checks
// (positive intervals and counts), and format checks (base URL shape).
package config
