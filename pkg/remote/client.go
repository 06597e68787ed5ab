package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CredentialProvider supplies the bearer token for authenticated requests.
// The session collaborator that owns the token lifecycle implements this;
// the client only consumes it. A Token error is treated as a terminal
// authorization failure.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredentials is a CredentialProvider for a fixed token.
type StaticCredentials string

// Token returns the fixed token.
func (s StaticCredentials) Token(_ context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("no token configured")
	}
	return string(s), nil
}

// ClientConfig configures the transport.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "https://api.github.com".
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout is the per-request network timeout.
	Timeout time.Duration

	// MaxIdleConns and MaxIdleConnsPerHost tune connection pooling.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Client is the HTTP transport for the repository backend.
//
// It performs no throttling or retrying; every exported call maps to exactly
// one HTTP request. Failures are returned as the typed errors defined in
// this package so higher layers can classify them.
type Client struct {
	config ClientConfig
	creds  CredentialProvider
	client *http.Client

	// rate is the server-reported budget, updated after every response
	rate   RateLimitState
	rateMu sync.RWMutex
}

// NewClient creates a transport with connection pooling.
func NewClient(config ClientConfig, creds CredentialProvider) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if creds == nil {
		return nil, fmt.Errorf("credential provider cannot be nil")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "callisto"
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: config,
		creds:  creds,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}, nil
}

// RateLimitState returns the last server-reported budget.
func (c *Client) RateLimitState() RateLimitState {
	c.rateMu.RLock()
	defer c.rateMu.RUnlock()
	return c.rate
}

// do performs one request and decodes the JSON response into out (if non-nil).
// wantStatus lists the status codes considered successful; anything else is
// translated into a typed error.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any, wantStatus ...int) error {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return &AuthError{Op: op, StatusCode: 0, Message: fmt.Sprintf("credential refresh failed: %v", err)}
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("sending request", "op", op, "method", method, "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NetworkError{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	c.updateRateLimit(resp.Header)

	if statusOK(resp.StatusCode, wantStatus) {
		if out == nil {
			return nil
		}
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return &ParseError{Op: op, Cause: fmt.Errorf("failed to read response: %w", err)}
		}
		if len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return &ParseError{Op: op, Cause: err}
		}
		return nil
	}

	errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return c.statusError(op, resp, string(errBody))
}

// statusError maps a non-success response to a typed error.
func (c *Client) statusError(op string, resp *http.Response, message string) error {
	message = compactMessage(message)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		// Secondary throttle with an explicit retry-after, or primary
		// quota if the remaining counter is exhausted.
		if retryAfter := parseRetryAfter(resp.Header.Get("Retry-After")); retryAfter > 0 {
			return &RateLimitError{Op: op, Primary: false, RetryAfter: retryAfter, Message: message}
		}
		return &RateLimitError{Op: op, Primary: true, Reset: parseResetHeader(resp.Header), Message: message}

	case resp.StatusCode == http.StatusForbidden:
		// A 403 with an exhausted quota is a primary rate limit, not an
		// authorization failure.
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return &RateLimitError{Op: op, Primary: true, Reset: parseResetHeader(resp.Header), Message: message}
		}
		if retryAfter := parseRetryAfter(resp.Header.Get("Retry-After")); retryAfter > 0 {
			return &RateLimitError{Op: op, Primary: false, RetryAfter: retryAfter, Message: message}
		}
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Message: message}

	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Message: message}

	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Op: op, Resource: message}

	case resp.StatusCode == http.StatusConflict:
		return &VersionConflictError{Op: op, Message: message}

	case resp.StatusCode == http.StatusUnprocessableEntity:
		// The backend reports stale-SHA content writes as 422 with a
		// distinguishable message.
		if strings.Contains(strings.ToLower(message), "does not match") {
			return &VersionConflictError{Op: op, Message: message}
		}
		return &ValidationError{Op: op, StatusCode: resp.StatusCode, Message: message}

	case resp.StatusCode == http.StatusBadRequest:
		return &ValidationError{Op: op, StatusCode: resp.StatusCode, Message: message}

	case resp.StatusCode >= 500:
		return &ServerError{Op: op, StatusCode: resp.StatusCode, Message: message}

	default:
		return &ServerError{Op: op, StatusCode: resp.StatusCode, Message: message}
	}
}

// updateRateLimit captures the server-reported budget from response headers.
func (c *Client) updateRateLimit(h http.Header) {
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}

	c.rateMu.Lock()
	defer c.rateMu.Unlock()

	c.rate.Remaining = remaining
	c.rate.UpdatedAt = time.Now()
	if limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil {
		c.rate.Limit = limit
	}
	if resetUnix, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		c.rate.Reset = time.Unix(resetUnix, 0)
	}
}

// --- Contents API ---

// GetContents fetches a file by path at the given ref. gitRef may be a
// branch name or commit SHA; empty means the default branch.
func (c *Client) GetContents(ctx context.Context, repo RepositoryRef, path, gitRef string) (*ContentFile, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", repo.Owner, repo.Name, escapePath(path))
	if gitRef != "" {
		endpoint += "?ref=" + url.QueryEscape(gitRef)
	}

	var file ContentFile
	if err := c.do(ctx, "get contents", http.MethodGet, endpoint, nil, &file, http.StatusOK); err != nil {
		return nil, err
	}
	return &file, nil
}

// PutContents creates or updates a file by path.
func (c *Client) PutContents(ctx context.Context, repo RepositoryRef, path string, req PutContentsRequest) (*PutContentsResult, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", repo.Owner, repo.Name, escapePath(path))

	var result PutContentsResult
	err := c.do(ctx, "put contents", http.MethodPut, endpoint, req, &result,
		http.StatusOK, http.StatusCreated)
	if err != nil {
		// Attach the path for conflict errors so callers can report it.
		var conflict *VersionConflictError
		if errors.As(err, &conflict) {
			conflict.Path = path
		}
		return nil, err
	}
	return &result, nil
}

// --- Git data API ---

// GetRef reads a branch reference, e.g. GetRef(ctx, repo, "main").
func (c *Client) GetRef(ctx context.Context, repo RepositoryRef, branch string) (*GitRef, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", repo.Owner, repo.Name, url.PathEscape(branch))

	var ref GitRef
	if err := c.do(ctx, "get ref", http.MethodGet, endpoint, nil, &ref, http.StatusOK); err != nil {
		return nil, err
	}
	return &ref, nil
}

// UpdateRef advances a branch reference to a new commit.
func (c *Client) UpdateRef(ctx context.Context, repo RepositoryRef, branch, sha string, force bool) (*GitRef, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/refs/heads/%s", repo.Owner, repo.Name, url.PathEscape(branch))

	var ref GitRef
	err := c.do(ctx, "update ref", http.MethodPatch, endpoint,
		UpdateRefRequest{SHA: sha, Force: force}, &ref, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// CreateRef creates a new branch reference pointing at the given commit.
func (c *Client) CreateRef(ctx context.Context, repo RepositoryRef, branch, sha string) (*GitRef, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/refs", repo.Owner, repo.Name)

	var ref GitRef
	err := c.do(ctx, "create ref", http.MethodPost, endpoint,
		CreateRefRequest{Ref: "refs/heads/" + branch, SHA: sha}, &ref, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetCommit reads a commit object by SHA.
func (c *Client) GetCommit(ctx context.Context, repo RepositoryRef, sha string) (*GitCommit, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/commits/%s", repo.Owner, repo.Name, sha)

	var commit GitCommit
	if err := c.do(ctx, "get commit", http.MethodGet, endpoint, nil, &commit, http.StatusOK); err != nil {
		return nil, err
	}
	return &commit, nil
}

// CreateBlob uploads file content as a blob object.
func (c *Client) CreateBlob(ctx context.Context, repo RepositoryRef, req CreateBlobRequest) (*BlobRef, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/blobs", repo.Owner, repo.Name)

	var blob BlobRef
	if err := c.do(ctx, "create blob", http.MethodPost, endpoint, req, &blob, http.StatusCreated); err != nil {
		return nil, err
	}
	return &blob, nil
}

// CreateTree builds a new tree from a base tree plus the given entries.
func (c *Client) CreateTree(ctx context.Context, repo RepositoryRef, req CreateTreeRequest) (*GitTree, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/trees", repo.Owner, repo.Name)

	var tree GitTree
	if err := c.do(ctx, "create tree", http.MethodPost, endpoint, req, &tree, http.StatusCreated); err != nil {
		return nil, err
	}
	return &tree, nil
}

// CreateCommit records a new commit object.
func (c *Client) CreateCommit(ctx context.Context, repo RepositoryRef, req CreateCommitRequest) (*GitCommit, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/commits", repo.Owner, repo.Name)

	var commit GitCommit
	if err := c.do(ctx, "create commit", http.MethodPost, endpoint, req, &commit, http.StatusCreated); err != nil {
		return nil, err
	}
	return &commit, nil
}

// --- Branch comparison and peer changes ---

// Compare reports the relationship of head relative to base.
func (c *Client) Compare(ctx context.Context, repo RepositoryRef, base, head string) (*CompareResult, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/compare/%s...%s",
		repo.Owner, repo.Name, url.PathEscape(base), url.PathEscape(head))

	var result CompareResult
	if err := c.do(ctx, "compare", http.MethodGet, endpoint, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListOpenPulls lists open pull requests targeting the given base branch.
func (c *Client) ListOpenPulls(ctx context.Context, repo RepositoryRef, base string) ([]PullRequest, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/pulls?state=open&base=%s",
		repo.Owner, repo.Name, url.QueryEscape(base))

	var pulls []PullRequest
	if err := c.do(ctx, "list pulls", http.MethodGet, endpoint, nil, &pulls, http.StatusOK); err != nil {
		return nil, err
	}
	return pulls, nil
}

// Merge merges head into base server-side. Returns nil result with no error
// when there is nothing to merge.
func (c *Client) Merge(ctx context.Context, repo RepositoryRef, req MergeRequest) (*MergeResult, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/merges", repo.Owner, repo.Name)

	var result MergeResult
	err := c.do(ctx, "merge", http.MethodPost, endpoint, req, &result,
		http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return nil, err
	}
	if result.SHA == "" {
		return nil, nil
	}
	return &result, nil
}

// --- Publish API ---

// GetPages reads the publish target configuration for the repository.
func (c *Client) GetPages(ctx context.Context, repo RepositoryRef) (*PagesInfo, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/pages", repo.Owner, repo.Name)

	var info PagesInfo
	if err := c.do(ctx, "get pages", http.MethodGet, endpoint, nil, &info, http.StatusOK); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListDeployments lists recent publish operations, newest first.
func (c *Client) ListDeployments(ctx context.Context, repo RepositoryRef) ([]Deployment, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/pages/builds", repo.Owner, repo.Name)

	var deployments []Deployment
	if err := c.do(ctx, "list deployments", http.MethodGet, endpoint, nil, &deployments, http.StatusOK); err != nil {
		return nil, err
	}
	return deployments, nil
}

// --- Access and quota ---

// CheckAccess validates the credential and reports granted scopes.
func (c *Client) CheckAccess(ctx context.Context) (*AccessInfo, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, &AuthError{Op: "check access", Message: fmt.Sprintf("credential refresh failed: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("check access: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Op: "check access", Cause: err}
	}
	defer resp.Body.Close()

	c.updateRateLimit(resp.Header)

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, c.statusError("check access", resp, string(errBody))
	}

	var user struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, &ParseError{Op: "check access", Cause: err}
	}

	info := &AccessInfo{Login: user.Login}
	if scopes := resp.Header.Get("X-OAuth-Scopes"); scopes != "" {
		for _, s := range strings.Split(scopes, ",") {
			info.Scopes = append(info.Scopes, strings.TrimSpace(s))
		}
	}
	return info, nil
}

// Ping is a lightweight reachability probe against the quota endpoint.
// The quota endpoint never counts against the primary budget.
func (c *Client) Ping(ctx context.Context) error {
	var result struct {
		Resources struct {
			Core struct {
				Remaining int `json:"remaining"`
			} `json:"core"`
		} `json:"resources"`
	}
	return c.do(ctx, "ping", http.MethodGet, "/rate_limit", nil, &result, http.StatusOK)
}

// --- helpers ---

func statusOK(code int, want []int) bool {
	for _, w := range want {
		if code == w {
			return true
		}
	}
	return false
}

// escapePath escapes a repository file path segment by segment, preserving
// slashes.
func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}

// parseResetHeader parses the X-RateLimit-Reset header into a timestamp.
// Falls back to one minute out when the header is missing or malformed.
func parseResetHeader(h http.Header) time.Time {
	if resetUnix, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		return time.Unix(resetUnix, 0)
	}
	return time.Now().Add(time.Minute)
}

// compactMessage collapses a JSON error body into its message field when
// possible, otherwise truncates the raw body.
func compactMessage(body string) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	body = strings.TrimSpace(body)
	if len(body) > 200 {
		body = body[:200]
	}
	return body
}
