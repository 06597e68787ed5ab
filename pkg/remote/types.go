package remote

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// RepositoryRef identifies a repository and the working branch within it.
// It is immutable for the lifetime of a client session.
type RepositoryRef struct {
	// Owner is the account or organization that owns the repository.
	Owner string

	// Name is the repository name.
	Name string

	// Branch is the working branch.
	Branch string
}

// String returns the canonical owner/name identifier.
func (r RepositoryRef) String() string {
	return r.Owner + "/" + r.Name
}

// Validate checks that all fields are populated.
func (r RepositoryRef) Validate() error {
	if r.Owner == "" {
		return fmt.Errorf("repository owner cannot be empty")
	}
	if r.Name == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if r.Branch == "" {
		return fmt.Errorf("repository branch cannot be empty")
	}
	return nil
}

// RateLimitState is the server-reported request budget, captured from
// response headers after every call.
type RateLimitState struct {
	// Limit is the total request budget for the current window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// Reset is when the budget replenishes.
	Reset time.Time

	// UpdatedAt is when this state was last refreshed from a response.
	UpdatedAt time.Time
}

// ContentFile is a file fetched through the contents API.
type ContentFile struct {
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Decode returns the decoded file content. The backend delivers content
// base64-encoded with embedded newlines.
func (f *ContentFile) Decode() ([]byte, error) {
	switch f.Encoding {
	case "base64":
		cleaned := strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' {
				return -1
			}
			return r
		}, f.Content)
		data, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("failed to decode content for %q: %w", f.Path, err)
		}
		return data, nil
	case "", "none":
		return []byte(f.Content), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q for %q", f.Encoding, f.Path)
	}
}

// PutContentsRequest creates or updates a single file by path.
type PutContentsRequest struct {
	// Message is the commit message for the change.
	Message string `json:"message"`

	// Content is the base64-encoded file content.
	Content string `json:"content"`

	// SHA is the blob SHA of the file being replaced. Empty for creates.
	SHA string `json:"sha,omitempty"`

	// Branch is the branch to commit to.
	Branch string `json:"branch,omitempty"`
}

// PutContentsResult is the outcome of a contents write.
type PutContentsResult struct {
	Content struct {
		Path string `json:"path"`
		SHA  string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// GitRef is a branch (or tag) reference.
type GitRef struct {
	Ref    string `json:"ref"`
	Object struct {
		Type string `json:"type"`
		SHA  string `json:"sha"`
	} `json:"object"`
}

// GitCommit is a commit object in the versioning model.
type GitCommit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Tree    struct {
		SHA string `json:"sha"`
	} `json:"tree"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
}

// TreeEntry is one path in a tree object.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha,omitempty"`
}

// GitTree is a tree object referencing a snapshot of files.
type GitTree struct {
	SHA     string      `json:"sha"`
	Entries []TreeEntry `json:"tree"`
}

// CreateTreeRequest builds a new tree on top of an existing base tree.
type CreateTreeRequest struct {
	BaseTree string      `json:"base_tree,omitempty"`
	Entries  []TreeEntry `json:"tree"`
}

// CreateBlobRequest uploads file content as a blob object.
type CreateBlobRequest struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// BlobRef is the SHA handle of a created blob.
type BlobRef struct {
	SHA string `json:"sha"`
}

// CreateCommitRequest records a new commit referencing a tree and parents.
type CreateCommitRequest struct {
	Message string   `json:"message"`
	Tree    string   `json:"tree"`
	Parents []string `json:"parents"`
}

// UpdateRefRequest advances a branch reference to a new commit.
type UpdateRefRequest struct {
	SHA   string `json:"sha"`
	Force bool   `json:"force"`
}

// CreateRefRequest creates a new branch reference.
type CreateRefRequest struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// MergeRequest merges one branch head into a base branch server-side.
type MergeRequest struct {
	Base    string `json:"base"`
	Head    string `json:"head"`
	Message string `json:"commit_message,omitempty"`
}

// MergeResult reports the merge commit, if one was created.
type MergeResult struct {
	SHA string `json:"sha"`
}

// CompareResult describes the relationship between two branches.
type CompareResult struct {
	// Status is one of "identical", "ahead", "behind", "diverged".
	Status string `json:"status"`

	// AheadBy counts commits the head branch has that the base lacks.
	AheadBy int `json:"ahead_by"`

	// BehindBy counts commits the base branch has that the head lacks.
	BehindBy int `json:"behind_by"`

	TotalCommits int `json:"total_commits"`
}

// PullRequest is an open peer change targeting a branch.
type PullRequest struct {
	Number int    `json:"number"`
	State  string `json:"state"`
	Title  string `json:"title"`
	URL    string `json:"html_url"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

// Deployment status values reported by the publish API.
const (
	DeploymentPending   = "pending"
	DeploymentBuilding  = "building"
	DeploymentCompleted = "built"
	DeploymentErrored   = "errored"
)

// Deployment is one asynchronous publish triggered by a commit. It is owned
// by the remote service; this client only observes it.
type Deployment struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	Commit    string    `json:"commit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the deployment has finished, successfully or not.
func (d *Deployment) Terminal() bool {
	return d.Status == DeploymentCompleted || d.Status == DeploymentErrored
}

// PagesInfo describes the publish target for the repository.
type PagesInfo struct {
	URL    string `json:"html_url"`
	Status string `json:"status"`
	Source struct {
		Branch string `json:"branch"`
		Path   string `json:"path"`
	} `json:"source"`
}

// AccessInfo is the result of a credential check.
type AccessInfo struct {
	// Login is the authenticated account name.
	Login string

	// Scopes are the OAuth scopes granted to the credential.
	Scopes []string
}

// HasScope reports whether the credential carries the given scope.
func (a *AccessInfo) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
