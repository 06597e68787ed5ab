// Package telemetry groups observability support for Callisto.
//
// # Components
//
//   - logging: structured logging with credential redaction
//   - metrics: the Prometheus scrape endpoint
//
// Individual packages register their own metrics with the default
// Prometheus registry; the metrics subpackage only exposes them over HTTP
// when the telemetry configuration enables it.
package telemetry
