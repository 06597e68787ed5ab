// Package throttle provides the local request-rate governor.
//
// # Overview
//
// The throttle enforces three independent ceilings, independent of any
// server-reported budget:
//
//   - Minimum spacing between consecutive requests
//   - Requests per rolling one-minute window
//   - Requests per rolling one-hour window
//
// The hourly ceiling defaults deliberately below the backend's published
// limit so the local governor trips before the server does.
//
// # Behavior
//
// Admit never rejects a request. When a ceiling is reached it computes the
// exact wait until the oldest counted request ages out of the relevant
// window, adds a small safety margin, and suspends the caller for that
// duration. The wait is cancellable through the caller's context.
//
//	if err := th.Admit(ctx); err != nil {
//	    return err // context cancelled while waiting
//	}
//	// safe to issue one request
//
// # Reconfiguration
//
// Ceilings may be adjusted at runtime with SetLimits without restarting the
// process. In-flight waiters pick up the new limits on their next check.
//
// # Thread Safety
//
// The ledger of request timestamps is guarded by a single mutex; the
// expected request volume is low enough that contention is not a concern.
package throttle
