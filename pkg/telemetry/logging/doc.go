// Package logging configures structured logging for Callisto.
//
// # Setup
//
// Setup builds a slog.Logger from the telemetry configuration and installs
// it as the process default, so packages can log through the plain slog
// package functions:
//
//	logger, err := logging.Setup(logging.Config{Level: "info", Format: "json"})
//
// # Credential Redaction
//
// Every record passes through a redacting handler before it is written.
// The redactor scrubs bearer tokens and known token shapes (classic and
// fine-grained personal access tokens, OAuth tokens) from the message and
// from all string attribute values. Credentials must never reach a log
// sink, including at debug level.
package logging
