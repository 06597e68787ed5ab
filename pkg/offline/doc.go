// Package offline tracks connectivity to the repository backend and drives
// the degraded read path.
//
// # State Machine
//
// The controller is online by default. It flips to offline after a run of
// consecutive qualifying failures: network and timeout errors, rate-limit
// and 403 responses, and 5xx server errors. Anything suggesting a
// client-side mistake (bad credentials on 401, malformed requests) does not
// qualify, because going offline would mask a bug the caller needs to see.
//
// While offline, the repo layer redirects reads to the local cache and, on
// a miss, serves a tagged fallback payload instead of failing.
//
// # Recovery
//
// Recovery probing is rate-limited to once per probe interval and uses a
// lightweight quota call that does not count against the request budget. A
// successful probe flips the state back to online. Each transition emits
// exactly one notification through the configured Notifier.
package offline
