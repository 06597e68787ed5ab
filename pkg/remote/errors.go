package remote

import (
	"fmt"
	"time"
)

// AuthError represents a credential failure.
// This occurs when the backend rejects the token (HTTP 401) or the token
// lacks permission for the resource (HTTP 403 without rate-limit markers).
type AuthError struct {
	// Op is the logical operation that failed
	Op string

	// StatusCode is the HTTP status code (401 or 403)
	StatusCode int

	// Message is the error message from the backend
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authorization failed (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// ValidationError represents a malformed request.
// The backend understood the request but the client sent invalid data.
type ValidationError struct {
	// Op is the logical operation that failed
	Op string

	// StatusCode is the HTTP status code (400 or 422)
	StatusCode int

	// Message is the error message from the backend
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid request (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// VersionConflictError represents a write that raced another writer:
// the version tag the client supplied no longer matches the branch tip.
type VersionConflictError struct {
	// Op is the logical operation that failed
	Op string

	// Path is the file path being written, if applicable
	Path string

	// Message is the error message from the backend
	Message string
}

// Error implements the error interface.
func (e *VersionConflictError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: version conflict on %q: %s", e.Op, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: version conflict: %s", e.Op, e.Message)
}

// NotFoundError represents a missing resource. For file reads this is not
// an error condition at the client layer; callers translate it to an absent
// result.
type NotFoundError struct {
	// Op is the logical operation that failed
	Op string

	// Resource identifies what was not found
	Resource string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.Op, e.Resource)
}

// RateLimitError represents an exhausted request budget.
//
// Primary limits carry a machine-readable reset time; secondary (abuse
// detection) throttles carry an explicit retry-after duration instead.
type RateLimitError struct {
	// Op is the logical operation that failed
	Op string

	// Primary is true for the main quota, false for secondary throttles
	Primary bool

	// Reset is when the primary quota replenishes (zero for secondary)
	Reset time.Time

	// RetryAfter is the backend-mandated wait for secondary throttles
	RetryAfter time.Duration

	// Message is the error message from the backend
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.Primary {
		return fmt.Sprintf("%s: rate limit exhausted (resets %s): %s",
			e.Op, e.Reset.Format(time.RFC3339), e.Message)
	}
	return fmt.Sprintf("%s: secondary rate limit (retry after %s): %s",
		e.Op, e.RetryAfter, e.Message)
}

// ServerError represents a backend-side failure (HTTP 5xx).
type ServerError struct {
	// Op is the logical operation that failed
	Op string

	// StatusCode is the HTTP status code
	StatusCode int

	// Message is the error message from the backend
	Message string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server error (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// NetworkError represents a request that never produced a response:
// connection refused, DNS failure, or timeout.
type NetworkError struct {
	// Op is the logical operation that failed
	Op string

	// Cause is the underlying transport error
	Cause error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ParseError represents a response body that could not be decoded.
type ParseError struct {
	// Op is the logical operation that failed
	Op string

	// Cause is the underlying decode error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: response parse error: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
