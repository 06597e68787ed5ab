package repo

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"mercator-hq/callisto/pkg/events"
	"mercator-hq/callisto/pkg/remote"
)

// CommitFiles builds one atomic multi-file commit on the working branch:
// resolve the tip, upload blobs, build a tree on the tip's tree, record a
// commit with the tip as parent, then advance the branch ref. The ref
// advance is the last step, so a failure anywhere earlier leaves the branch
// pointer untouched.
func (c *Client) CommitFiles(ctx context.Context, files []CommitFile, message string, progress events.ProgressFunc) (*CommitResult, error) {
	if len(files) == 0 {
		return nil, &remote.ValidationError{Op: "commit files", Message: "no files to commit"}
	}
	if message == "" {
		return nil, &remote.ValidationError{Op: "commit files", Message: "commit message cannot be empty"}
	}
	for _, f := range files {
		if f.Path == "" {
			return nil, &remote.ValidationError{Op: "commit files", Message: "file path cannot be empty"}
		}
		if !f.Binary && !utf8.Valid(f.Content) {
			return nil, &remote.ValidationError{
				Op:      "commit files",
				Message: fmt.Sprintf("content for %q is not valid UTF-8; mark it binary", f.Path),
			}
		}
	}

	if err := c.ensureWriteAccess(ctx); err != nil {
		return nil, err
	}

	repoRef := c.config.Repository

	// Step 1: resolve the current branch tip.
	notifyProgress(progress, 5, "resolving branch tip")
	tipSHA, err := c.ResolveTip(ctx, repoRef.Branch)
	if err != nil {
		return nil, fmt.Errorf("commit: resolving tip of %q: %w", repoRef.Branch, err)
	}

	var parentCommit *remote.GitCommit
	err = c.execute(ctx, func(ctx context.Context) error {
		commit, err := c.remote.GetCommit(ctx, repoRef, tipSHA)
		if err != nil {
			return err
		}
		parentCommit = commit
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit: reading tip commit: %w", err)
	}

	// Step 2: upload one blob per file.
	entries := make([]remote.TreeEntry, len(files))
	for i, f := range files {
		pct := 10 + (40*i)/len(files)
		notifyProgress(progress, pct, fmt.Sprintf("uploading %s", f.Path))

		req := remote.CreateBlobRequest{
			Content:  base64.StdEncoding.EncodeToString(f.Content),
			Encoding: "base64",
		}

		var blob *remote.BlobRef
		err = c.execute(ctx, func(ctx context.Context) error {
			b, err := c.remote.CreateBlob(ctx, repoRef, req)
			if err != nil {
				return err
			}
			blob = b
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("commit: uploading blob for %q: %w", f.Path, err)
		}

		entries[i] = remote.TreeEntry{
			Path: f.Path,
			Mode: "100644",
			Type: "blob",
			SHA:  blob.SHA,
		}
	}

	// Step 3: build the new tree on top of the tip's tree.
	notifyProgress(progress, 60, "building tree")
	var tree *remote.GitTree
	err = c.execute(ctx, func(ctx context.Context) error {
		t, err := c.remote.CreateTree(ctx, repoRef, remote.CreateTreeRequest{
			BaseTree: parentCommit.Tree.SHA,
			Entries:  entries,
		})
		if err != nil {
			return err
		}
		tree = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit: creating tree: %w", err)
	}

	// Step 4: record the commit object.
	notifyProgress(progress, 80, "recording commit")
	var commit *remote.GitCommit
	err = c.execute(ctx, func(ctx context.Context) error {
		cm, err := c.remote.CreateCommit(ctx, repoRef, remote.CreateCommitRequest{
			Message: message,
			Tree:    tree.SHA,
			Parents: []string{tipSHA},
		})
		if err != nil {
			return err
		}
		commit = cm
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit: creating commit object: %w", err)
	}

	// Step 5: advance the branch ref. Only now does the branch change.
	notifyProgress(progress, 95, "advancing branch")
	err = c.execute(ctx, func(ctx context.Context) error {
		_, err := c.remote.UpdateRef(ctx, repoRef, repoRef.Branch, commit.SHA, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("commit: advancing branch %q: %w", repoRef.Branch, err)
	}

	notifyProgress(progress, 100, "commit complete")
	commitsTotal.Inc()
	slog.Info("commit created",
		"repo", repoRef.String(),
		"branch", repoRef.Branch,
		"commit", commit.SHA,
		"files", len(files),
	)

	return &CommitResult{
		CommitSHA:   commit.SHA,
		TreeSHA:     tree.SHA,
		Files:       len(files),
		CommittedAt: time.Now(),
	}, nil
}
