// Package deploy watches the remote publish pipeline after a commit and
// verifies the published result.
//
// # Watching
//
// The backend publishes asynchronously: a commit triggers a deployment
// that moves through pending and building before finishing. The Monitor
// polls the deployment listing on a fixed interval under a wall-clock
// budget and reduces what it observes to a small state machine:
//
//	pending -> matched -> completed | failed
//	        \-> timeout (budget exhausted in any non-terminal state)
//
// A deployment is matched once the listing shows one referencing the
// expected commit. Polling errors are logged and absorbed; the retry and
// offline machinery below the repository client already dealt with
// anything transient, and a watch should outlive a flaky poll.
//
// # Verification
//
// Completion means the backend finished building, not that the content is
// publicly visible; edge caches can lag. VerifyContent fetches the
// published URL and checks for expected markers, reporting verified or
// not-verified as a distinct outcome rather than an error.
package deploy
