// Package conflict classifies the relationship between a working branch and
// its base branch and proposes remedial actions.
//
// # Classification
//
// A scan compares the two branches through the backend's compare endpoint
// and reduces the result to at most one conflict:
//
//   - behind: the base has commits the working branch lacks, and nothing
//     the other way. Low-stakes; a merge brings the branch up to date.
//   - diverged: both branches carry commits the other lacks. The riskiest
//     state; a rebase or a fresh branch is proposed, never attempted.
//   - open-peer-changes: the branches are identical but open peer pull
//     requests target the working branch, so a peer may land changes at
//     any moment.
//
// Conflicts are produced fresh on every scan and carry their evidence
// (commit counts, peer change references). They are results, not errors.
//
// # Auto-resolution
//
// AttemptAutoResolution is deliberately conservative: it always snapshots
// the current tip into a timestamped backup branch before touching
// anything, and it only ever merges the behind case, and only when the
// caller opted in explicitly. Everything else is reported back for a
// human to handle.
package conflict
