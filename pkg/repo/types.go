package repo

import "time"

// Source tags where a read result came from, so callers can always
// distinguish live data from degraded-mode substitutes.
type Source string

const (
	// SourceLive is data fetched from the backend during this call.
	SourceLive Source = "live"

	// SourceCache is data served from the local cache in offline mode.
	SourceCache Source = "cache"

	// SourceFallback is the static fallback payload served on an offline
	// cache miss.
	SourceFallback Source = "fallback"
)

// FileContent is the result of a file read.
type FileContent struct {
	// Path is the repository file path.
	Path string

	// Content is the file content. Nil means the path does not exist;
	// that is a result, not an error.
	Content []byte

	// SHA is the version tag of the content. Empty for fallback data and
	// absent paths.
	SHA string

	// Source tags the origin of this result.
	Source Source
}

// WriteResult is the outcome of a single-file write.
type WriteResult struct {
	// Path is the file path written.
	Path string

	// SHA is the new version tag of the file.
	SHA string

	// CommitSHA is the commit recorded for the change.
	CommitSHA string

	// Attempts is how many tries the write took (greater than 1 only for
	// the conflict-retrying variant).
	Attempts int
}

// CommitFile is one file in a multi-file commit.
type CommitFile struct {
	// Path is the repository path to create or replace.
	Path string

	// Content is the file content.
	Content []byte

	// Binary marks content that must skip text validation.
	Binary bool
}

// CommitResult is the outcome of an atomic multi-file commit.
type CommitResult struct {
	// CommitSHA is the new branch tip.
	CommitSHA string

	// TreeSHA is the tree the commit references.
	TreeSHA string

	// Files is how many files the commit touched.
	Files int

	// CommittedAt is when the ref advance completed.
	CommittedAt time.Time
}

// AccessResult reports the outcome of a credential check.
type AccessResult struct {
	// OK means the credential authenticated successfully.
	OK bool

	// Login is the authenticated account.
	Login string

	// Scopes are the granted OAuth scopes.
	Scopes []string

	// CanWrite means a scope sufficient for mutating operations is
	// present.
	CanWrite bool
}
