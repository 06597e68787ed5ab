package repo

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"mercator-hq/callisto/internal/remotetest"
	"mercator-hq/callisto/pkg/remote"
)

// mockCommitPlumbing wires the happy path for a multi-file commit: tip
// lookup, the parent commit, blob uploads, tree and commit creation, and
// the ref advance.
func mockCommitPlumbing(srv *remotetest.Server) {
	srv.Respond("GET", "/repos/acme/site/git/ref/heads/main", remotetest.JSON(map[string]any{
		"ref":    "refs/heads/main",
		"object": map[string]string{"type": "commit", "sha": "tip-sha"},
	}))
	srv.Respond("GET", "/repos/acme/site/git/commits/tip-sha", remotetest.JSON(map[string]any{
		"sha":  "tip-sha",
		"tree": map[string]string{"sha": "base-tree-sha"},
	}))
	srv.Respond("POST", "/repos/acme/site/git/blobs", remotetest.Response{
		StatusCode: http.StatusCreated,
		Body:       map[string]string{"sha": "blob-sha"},
	})
	srv.Respond("POST", "/repos/acme/site/git/trees", remotetest.Response{
		StatusCode: http.StatusCreated,
		Body:       map[string]any{"sha": "new-tree-sha"},
	})
	srv.Respond("POST", "/repos/acme/site/git/commits", remotetest.Response{
		StatusCode: http.StatusCreated,
		Body: map[string]any{
			"sha":     "new-commit-sha",
			"tree":    map[string]string{"sha": "new-tree-sha"},
			"parents": []map[string]string{{"sha": "tip-sha"}},
		},
	})
	srv.Respond("PATCH", "/repos/acme/site/git/refs/heads/main", remotetest.JSON(map[string]any{
		"ref":    "refs/heads/main",
		"object": map[string]string{"type": "commit", "sha": "new-commit-sha"},
	}))
}

func TestCommitFiles_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	mockCommitPlumbing(env.srv)

	files := []CommitFile{
		{Path: "docs/a.md", Content: []byte("alpha")},
		{Path: "docs/b.md", Content: []byte("beta")},
	}

	result, err := env.client.CommitFiles(context.Background(), files, "update docs", nil)
	if err != nil {
		t.Fatalf("CommitFiles failed: %v", err)
	}
	if result.CommitSHA != "new-commit-sha" || result.TreeSHA != "new-tree-sha" {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.Files != 2 {
		t.Errorf("Expected 2 files, got %d", result.Files)
	}

	// One blob per file, then one tree, one commit, one ref advance.
	if n := env.srv.RequestCount("POST", "/repos/acme/site/git/blobs"); n != 2 {
		t.Errorf("Expected 2 blob uploads, got %d", n)
	}
	if n := env.srv.RequestCount("PATCH", "/repos/acme/site/git/refs/heads/main"); n != 1 {
		t.Errorf("Expected exactly 1 ref advance, got %d", n)
	}
}

func TestCommitFiles_TreeFailureLeavesBranchUntouched(t *testing.T) {
	env := newTestEnv(t)
	mockCommitPlumbing(env.srv)
	env.srv.Respond("POST", "/repos/acme/site/git/trees",
		remotetest.Error(http.StatusInternalServerError, "tree storage unavailable"))

	files := []CommitFile{{Path: "docs/a.md", Content: []byte("alpha")}}

	_, err := env.client.CommitFiles(context.Background(), files, "doomed", nil)
	if err == nil {
		t.Fatal("Expected tree failure to surface")
	}

	// The blob made it up, but the branch pointer never moved.
	if n := env.srv.RequestCount("POST", "/repos/acme/site/git/blobs"); n != 1 {
		t.Errorf("Expected 1 blob upload, got %d", n)
	}
	if n := env.srv.RequestCount("POST", "/repos/acme/site/git/commits"); n != 0 {
		t.Errorf("Commit object must not be created after tree failure, got %d", n)
	}
	if n := env.srv.RequestCount("PATCH", "/repos/acme/site/git/refs/heads/main"); n != 0 {
		t.Errorf("Branch ref must not move on failure, got %d updates", n)
	}
}

func TestCommitFiles_BlobFailureLeavesBranchUntouched(t *testing.T) {
	env := newTestEnv(t)
	mockCommitPlumbing(env.srv)
	env.srv.Respond("POST", "/repos/acme/site/git/blobs",
		remotetest.Error(http.StatusServiceUnavailable, "blob storage unavailable"))

	files := []CommitFile{
		{Path: "docs/a.md", Content: []byte("alpha")},
		{Path: "docs/b.md", Content: []byte("beta")},
	}

	_, err := env.client.CommitFiles(context.Background(), files, "doomed", nil)
	if err == nil {
		t.Fatal("Expected blob failure to surface")
	}
	if n := env.srv.RequestCount("POST", "/repos/acme/site/git/trees"); n != 0 {
		t.Errorf("Tree must not be created after blob failure, got %d", n)
	}
	if n := env.srv.RequestCount("PATCH", "/repos/acme/site/git/refs/heads/main"); n != 0 {
		t.Errorf("Branch ref must not move on failure, got %d updates", n)
	}
}

func TestCommitFiles_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name    string
		files   []CommitFile
		message string
	}{
		{"no files", nil, "msg"},
		{"empty message", []CommitFile{{Path: "a.md", Content: []byte("x")}}, ""},
		{"empty path", []CommitFile{{Path: "", Content: []byte("x")}}, "msg"},
		{"invalid utf8", []CommitFile{{Path: "a.md", Content: []byte{0xff, 0xfe}}}, "msg"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.client.CommitFiles(context.Background(), tc.files, tc.message, nil)
			var valErr *remote.ValidationError
			if !errors.As(err, &valErr) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}

	// Local validation never touches the backend.
	if got := len(env.srv.Requests()); got != 0 {
		t.Errorf("Validation failures must not reach the backend, saw %d requests", got)
	}
}

func TestCommitFiles_BinaryContentAllowed(t *testing.T) {
	env := newTestEnv(t)
	mockCommitPlumbing(env.srv)

	files := []CommitFile{{Path: "logo.png", Content: []byte{0x89, 0x50, 0x4e, 0x47}, Binary: true}}

	result, err := env.client.CommitFiles(context.Background(), files, "add logo", nil)
	if err != nil {
		t.Fatalf("Binary commit failed: %v", err)
	}
	if result.CommitSHA != "new-commit-sha" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestCommitFiles_ProgressMonotonic(t *testing.T) {
	env := newTestEnv(t)
	mockCommitPlumbing(env.srv)

	var seen []int
	progress := func(pct int, message string) {
		seen = append(seen, pct)
	}

	files := []CommitFile{
		{Path: "a.md", Content: []byte("a")},
		{Path: "b.md", Content: []byte("b")},
		{Path: "c.md", Content: []byte("c")},
	}
	if _, err := env.client.CommitFiles(context.Background(), files, "progress", progress); err != nil {
		t.Fatalf("CommitFiles failed: %v", err)
	}

	if len(seen) == 0 {
		t.Fatal("Expected progress callbacks")
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Errorf("Progress went backwards: %v", seen)
		}
	}
	if seen[len(seen)-1] != 100 {
		t.Errorf("Expected final progress 100, got %d", seen[len(seen)-1])
	}
}
