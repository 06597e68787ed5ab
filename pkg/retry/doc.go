// Package retry executes network operations under a classify-and-backoff
// policy.
//
// # Classification
//
// Failures are classified against the typed errors from the remote package,
// in priority order:
//
//  1. Authorization failures: terminal, never retried
//  2. Malformed requests: terminal, never retried
//  3. Primary rate limit with a reset time: wait until reset plus a buffer,
//     retry without consuming a counted attempt
//  4. Secondary throttle with an explicit retry-after: honor it exactly,
//     retry without consuming a counted attempt
//  5. Transient network, timeout and 5xx failures: exponential backoff with
//     per-class multipliers, capped attempts
//  6. Anything else: terminal after one attempt
//
// # Backoff
//
// delay = base * multiplier^(attempt-1) + jitter, capped at the configured
// maximum. Jitter spans up to one base delay (0..1s at the default base).
// Server errors ramp fastest; network failures slower; rate-limit-class
// backoff slowest.
//
// # Patience
//
// Rate-limit waits are absorbed silently unless the wait would exceed the
// caller's context deadline, in which case the rate-limit error surfaces
// immediately instead of stalling past the caller's budget.
//
// All waits select on the context and return ctx.Err() when cancelled.
package retry
