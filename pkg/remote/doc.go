// Package remote implements the HTTP transport and wire model for the
// repository backend API.
//
// # Overview
//
// The remote package is the lowest network-facing layer of Callisto. It
// knows how to speak the backend's REST dialect (contents, git data objects,
// refs, compares, pull requests, pages deployments) and how to turn HTTP
// failures into the typed errors the rest of the system classifies:
//
//   - AuthError: credential rejected (401) or access forbidden (403)
//   - ValidationError: the request itself was malformed (400/422)
//   - VersionConflictError: a write raced another writer (409)
//   - NotFoundError: the resource does not exist (404)
//   - RateLimitError: primary quota exhausted or secondary abuse throttle (429/403)
//   - ServerError: backend-side failure (5xx)
//   - NetworkError: the request never produced a response
//
// # Rate Limit Tracking
//
// Every response updates the client's RateLimitState from the
// X-RateLimit-Remaining and X-RateLimit-Reset headers, so higher layers can
// inspect the server-reported budget at any time:
//
//	state := client.RateLimitState()
//	if state.Remaining == 0 {
//	    // back off until state.Reset
//	}
//
// # Credentials
//
// The client consults a CredentialProvider before each request. Tokens are
// injected into the Authorization header and are never logged; see the
// telemetry/logging package for the redaction guarantees.
//
// The package performs no throttling, retrying, or caching of its own. Those
// concerns belong to the throttle, retry, and cache packages, composed by
// the repo package.
package remote
