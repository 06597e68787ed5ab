package repo

import (
	"context"
	"fmt"

	"mercator-hq/callisto/pkg/remote"
)

// Throttled, retried wrappers over the transport's branch and publish
// endpoints. The conflict analyzer and deployment monitor are built on
// these instead of talking to the transport directly.

// ResolveTip returns the head commit SHA of a branch.
func (c *Client) ResolveTip(ctx context.Context, branch string) (string, error) {
	var sha string
	err := c.execute(ctx, func(ctx context.Context) error {
		ref, err := c.remote.GetRef(ctx, c.config.Repository, branch)
		if err != nil {
			return err
		}
		sha = ref.Object.SHA
		return nil
	})
	if err != nil {
		return "", err
	}
	return sha, nil
}

// CompareBranches reports the relationship of head relative to base.
func (c *Client) CompareBranches(ctx context.Context, base, head string) (*remote.CompareResult, error) {
	var result *remote.CompareResult
	err := c.execute(ctx, func(ctx context.Context) error {
		r, err := c.remote.Compare(ctx, c.config.Repository, base, head)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// ListOpenPulls lists open peer changes targeting the given base branch.
func (c *Client) ListOpenPulls(ctx context.Context, base string) ([]remote.PullRequest, error) {
	var pulls []remote.PullRequest
	err := c.execute(ctx, func(ctx context.Context) error {
		p, err := c.remote.ListOpenPulls(ctx, c.config.Repository, base)
		if err != nil {
			return err
		}
		pulls = p
		return nil
	})
	return pulls, err
}

// CreateBranch creates a new branch pointing at the given commit.
func (c *Client) CreateBranch(ctx context.Context, name, sha string) error {
	if err := c.ensureWriteAccess(ctx); err != nil {
		return err
	}
	return c.execute(ctx, func(ctx context.Context) error {
		_, err := c.remote.CreateRef(ctx, c.config.Repository, name, sha)
		return err
	})
}

// MergeBranches merges head into base server-side. An empty returned SHA
// means there was nothing to merge.
func (c *Client) MergeBranches(ctx context.Context, base, head, message string) (string, error) {
	if err := c.ensureWriteAccess(ctx); err != nil {
		return "", err
	}

	var sha string
	err := c.execute(ctx, func(ctx context.Context) error {
		result, err := c.remote.Merge(ctx, c.config.Repository, remote.MergeRequest{
			Base:    base,
			Head:    head,
			Message: message,
		})
		if err != nil {
			return err
		}
		if result != nil {
			sha = result.SHA
		}
		return nil
	})
	return sha, err
}

// PublishedURL returns the public URL the repository publishes to.
func (c *Client) PublishedURL(ctx context.Context) (string, error) {
	var url string
	err := c.execute(ctx, func(ctx context.Context) error {
		info, err := c.remote.GetPages(ctx, c.config.Repository)
		if err != nil {
			return err
		}
		url = info.URL
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reading publish target: %w", err)
	}
	return url, nil
}

// ListDeployments lists recent publish operations, newest first.
func (c *Client) ListDeployments(ctx context.Context) ([]remote.Deployment, error) {
	var deployments []remote.Deployment
	err := c.execute(ctx, func(ctx context.Context) error {
		d, err := c.remote.ListDeployments(ctx, c.config.Repository)
		if err != nil {
			return err
		}
		deployments = d
		return nil
	})
	return deployments, err
}
