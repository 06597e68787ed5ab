package repo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"mercator-hq/callisto/pkg/cache"
	"mercator-hq/callisto/pkg/events"
	"mercator-hq/callisto/pkg/offline"
	"mercator-hq/callisto/pkg/remote"
	"mercator-hq/callisto/pkg/retry"
	"mercator-hq/callisto/pkg/throttle"
)

// Config configures the repository client.
type Config struct {
	// Repository identifies the repo and working branch.
	Repository remote.RepositoryRef

	// BatchSize bounds fan-out for multi-file reads. Default 5.
	BatchSize int

	// BatchPause is the polite pause between fan-out batches. Default 500ms.
	BatchPause time.Duration

	// WriteRetryAttempts is the budget for the conflict-retrying write
	// variant. Default 3.
	WriteRetryAttempts int

	// WriteRetryDelay is the base delay between conflict retries; the
	// delay grows linearly with the attempt number. Default 500ms.
	WriteRetryDelay time.Duration

	// FallbackPayload is served, tagged, on an offline cache miss so the
	// calling UI never sees a hard error purely due to connectivity.
	FallbackPayload []byte

	// WriteScopes are the credential scopes accepted as write access.
	// Default: repo, public_repo.
	WriteScopes []string
}

// Client is the repository client. All collaborators are injected; the
// client owns none of their lifecycles.
type Client struct {
	config   Config
	remote   *remote.Client
	throttle *throttle.Throttle
	retry    *retry.Policy
	cache    *cache.Cache
	offline  *offline.Controller

	// accessMu guards the memoized write-access check
	accessMu      sync.Mutex
	accessGranted bool

	// sleep and now are replaceable for tests
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New creates a repository client. Every collaborator is required.
func New(config Config, rc *remote.Client, th *throttle.Throttle, rp *retry.Policy, ca *cache.Cache, oc *offline.Controller) (*Client, error) {
	if err := config.Repository.Validate(); err != nil {
		return nil, err
	}
	if rc == nil || th == nil || rp == nil || ca == nil || oc == nil {
		return nil, fmt.Errorf("all collaborators must be non-nil")
	}

	if config.BatchSize <= 0 {
		config.BatchSize = 5
	}
	if config.BatchPause <= 0 {
		config.BatchPause = 500 * time.Millisecond
	}
	if config.WriteRetryAttempts <= 0 {
		config.WriteRetryAttempts = 3
	}
	if config.WriteRetryDelay <= 0 {
		config.WriteRetryDelay = 500 * time.Millisecond
	}
	if config.FallbackPayload == nil {
		config.FallbackPayload = []byte("content temporarily unavailable\n")
	}
	if len(config.WriteScopes) == 0 {
		config.WriteScopes = []string{"repo", "public_repo"}
	}

	return &Client{
		config:   config,
		remote:   rc,
		throttle: th,
		retry:    rp,
		cache:    ca,
		offline:  oc,
		sleep:    sleepCtx,
		now:      time.Now,
	}, nil
}

// Repository returns the configured repository reference.
func (c *Client) Repository() remote.RepositoryRef {
	return c.config.Repository
}

// execute runs op under the throttle, the server budget gate, and the
// retry policy. Each retry attempt re-passes the throttle and the gate, so
// backoff waits and admission ceilings compose instead of bypassing each
// other.
func (c *Client) execute(ctx context.Context, op func(ctx context.Context) error) error {
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.throttle.Admit(ctx); err != nil {
			return err
		}
		if err := c.awaitServerBudget(ctx); err != nil {
			return err
		}
		return op(ctx)
	})
	if err == nil {
		c.offline.RecordSuccess()
		return nil
	}

	var notFound *remote.NotFoundError
	if !errors.As(err, &notFound) {
		c.offline.RecordFailure(err)
	}
	return err
}

// awaitServerBudget holds the request while the server's last reported
// budget is exhausted. The throttle keeps the client under its own
// ceilings; this honors the server's word that the quota is gone instead
// of firing a request that can only be rejected.
func (c *Client) awaitServerBudget(ctx context.Context) error {
	state := c.remote.RateLimitState()
	if state.UpdatedAt.IsZero() || state.Remaining > 0 {
		return nil
	}
	wait := state.Reset.Sub(c.now()) + c.retry.ResetBuffer
	if wait <= 0 {
		return nil
	}

	slog.Warn("server budget exhausted, holding request until reset",
		"reset", state.Reset,
		"wait", wait,
	)
	budgetHoldsTotal.Inc()
	return c.sleep(ctx, wait)
}

// ReadFile returns the content and version tag of a file. A nonexistent
// path yields a result with nil Content, not an error. In offline mode the
// read is served from cache, or from the tagged fallback payload on a miss.
func (c *Client) ReadFile(ctx context.Context, path, ref string) (*FileContent, error) {
	if ref == "" {
		ref = c.config.Repository.Branch
	}
	key := cache.Key{Repo: c.config.Repository.String(), Path: path, Ref: ref}

	if !c.offline.Online() {
		c.offline.MaybeProbe(ctx)
	}
	if !c.offline.Online() {
		return c.readDegraded(key, path), nil
	}

	var file *remote.ContentFile
	err := c.execute(ctx, func(ctx context.Context) error {
		f, err := c.remote.GetContents(ctx, c.config.Repository, path, ref)
		if err != nil {
			return err
		}
		file = f
		return nil
	})
	if err != nil {
		var notFound *remote.NotFoundError
		if errors.As(err, &notFound) {
			c.cache.Put(key, cache.Payload{Missing: true})
			return &FileContent{Path: path, Source: SourceLive}, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if !c.offline.Online() {
			// This failure tipped the controller offline; degrade
			// instead of surfacing a connectivity error.
			return c.readDegraded(key, path), nil
		}
		return nil, fmt.Errorf("read %q: %w", path, err)
	}

	content, err := file.Decode()
	if err != nil {
		return nil, err
	}

	c.cache.Put(key, cache.Payload{Content: content, SHA: file.SHA})
	readsTotal.WithLabelValues(string(SourceLive)).Inc()
	return &FileContent{Path: path, Content: content, SHA: file.SHA, Source: SourceLive}, nil
}

// readDegraded serves a read from cache or the tagged fallback payload.
func (c *Client) readDegraded(key cache.Key, path string) *FileContent {
	if payload, ok := c.cache.Get(key); ok {
		readsTotal.WithLabelValues(string(SourceCache)).Inc()
		if payload.Missing {
			return &FileContent{Path: path, Source: SourceCache}
		}
		return &FileContent{Path: path, Content: payload.Content, SHA: payload.SHA, Source: SourceCache}
	}

	readsTotal.WithLabelValues(string(SourceFallback)).Inc()
	fallback := make([]byte, len(c.config.FallbackPayload))
	copy(fallback, c.config.FallbackPayload)
	return &FileContent{Path: path, Content: fallback, Source: SourceFallback}
}

// ReadFiles reads multiple paths, fanning out in bounded batches with a
// polite pause between batches. Results are returned in input order.
func (c *Client) ReadFiles(ctx context.Context, paths []string, ref string) ([]*FileContent, error) {
	results := make([]*FileContent, len(paths))
	errs := make([]error, len(paths))

	for start := 0; start < len(paths); start += c.config.BatchSize {
		end := start + c.config.BatchSize
		if end > len(paths) {
			end = len(paths)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = c.ReadFile(ctx, paths[i], ref)
			}(i)
		}
		wg.Wait()

		if err := errors.Join(errs[start:end]...); err != nil {
			return nil, err
		}

		if end < len(paths) {
			if err := c.sleep(ctx, c.config.BatchPause); err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}

// WriteFile creates or updates a single file. It first reads the current
// version tag so the backend can detect a concurrent writer; this is an
// advisory check, not a lock. Binary content skips UTF-8 validation.
func (c *Client) WriteFile(ctx context.Context, path string, content []byte, message string, binary bool) (*WriteResult, error) {
	if err := c.ensureWriteAccess(ctx); err != nil {
		return nil, err
	}
	if !binary && !utf8.Valid(content) {
		return nil, &remote.ValidationError{
			Op:      "write file",
			Message: fmt.Sprintf("content for %q is not valid UTF-8; pass binary=true for raw payloads", path),
		}
	}

	result, err := c.writeOnce(ctx, path, content, message)
	if err != nil {
		return nil, err
	}
	result.Attempts = 1
	writesTotal.Inc()
	return result, nil
}

// WriteFileRetry is the conflict-retrying variant of WriteFile. Version
// conflicts are expected under concurrent writers, so it re-reads the tag
// and retries with an increasing delay; every other failure is returned
// immediately.
func (c *Client) WriteFileRetry(ctx context.Context, path string, content []byte, message string, binary bool) (*WriteResult, error) {
	if err := c.ensureWriteAccess(ctx); err != nil {
		return nil, err
	}
	if !binary && !utf8.Valid(content) {
		return nil, &remote.ValidationError{
			Op:      "write file",
			Message: fmt.Sprintf("content for %q is not valid UTF-8; pass binary=true for raw payloads", path),
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.WriteRetryAttempts; attempt++ {
		result, err := c.writeOnce(ctx, path, content, message)
		if err == nil {
			result.Attempts = attempt
			writesTotal.Inc()
			return result, nil
		}

		var conflict *remote.VersionConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		lastErr = err

		if attempt < c.config.WriteRetryAttempts {
			delay := time.Duration(attempt) * c.config.WriteRetryDelay
			slog.Debug("version conflict, retrying write",
				"path", path,
				"attempt", attempt,
				"delay", delay,
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("write %q: conflict persisted after %d attempts: %w",
		path, c.config.WriteRetryAttempts, lastErr)
}

// writeOnce performs one advisory-checked write.
func (c *Client) writeOnce(ctx context.Context, path string, content []byte, message string) (*WriteResult, error) {
	// Advisory read of the current version tag. Absence means create.
	var currentSHA string
	err := c.execute(ctx, func(ctx context.Context) error {
		f, err := c.remote.GetContents(ctx, c.config.Repository, path, c.config.Repository.Branch)
		if err != nil {
			return err
		}
		currentSHA = f.SHA
		return nil
	})
	if err != nil {
		var notFound *remote.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("write %q: reading current version: %w", path, err)
		}
	}

	req := remote.PutContentsRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     currentSHA,
		Branch:  c.config.Repository.Branch,
	}

	var put *remote.PutContentsResult
	err = c.execute(ctx, func(ctx context.Context) error {
		r, err := c.remote.PutContents(ctx, c.config.Repository, path, req)
		if err != nil {
			return err
		}
		put = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Refresh the cache so a subsequent read observes this write.
	key := cache.Key{Repo: c.config.Repository.String(), Path: path, Ref: c.config.Repository.Branch}
	c.cache.Put(key, cache.Payload{Content: append([]byte(nil), content...), SHA: put.Content.SHA})

	return &WriteResult{
		Path:      path,
		SHA:       put.Content.SHA,
		CommitSHA: put.Commit.SHA,
	}, nil
}

// CheckAccess validates the credential and reports the granted scopes.
func (c *Client) CheckAccess(ctx context.Context) (*AccessResult, error) {
	var info *remote.AccessInfo
	err := c.execute(ctx, func(ctx context.Context) error {
		i, err := c.remote.CheckAccess(ctx)
		if err != nil {
			return err
		}
		info = i
		return nil
	})
	if err != nil {
		var authErr *remote.AuthError
		if errors.As(err, &authErr) {
			return &AccessResult{OK: false}, nil
		}
		return nil, err
	}

	result := &AccessResult{OK: true, Login: info.Login, Scopes: info.Scopes}
	for _, scope := range c.config.WriteScopes {
		if info.HasScope(scope) {
			result.CanWrite = true
			break
		}
	}
	return result, nil
}

// ensureWriteAccess memoizes a successful write-scope check. Mutating
// operations call it before touching the backend so scope problems surface
// as auth errors instead of opaque write failures.
func (c *Client) ensureWriteAccess(ctx context.Context) error {
	c.accessMu.Lock()
	granted := c.accessGranted
	c.accessMu.Unlock()
	if granted {
		return nil
	}

	access, err := c.CheckAccess(ctx)
	if err != nil {
		return fmt.Errorf("verifying write access: %w", err)
	}
	if !access.OK {
		return &remote.AuthError{Op: "write access", Message: "credential rejected"}
	}
	if !access.CanWrite {
		return &remote.AuthError{
			Op: "write access",
			Message: fmt.Sprintf("credential lacks a write scope (granted: %v, need one of: %v)",
				access.Scopes, c.config.WriteScopes),
		}
	}

	c.accessMu.Lock()
	c.accessGranted = true
	c.accessMu.Unlock()
	return nil
}

// notifyProgress invokes the callback if present, clamping the percentage.
func notifyProgress(progress events.ProgressFunc, pct int, message string) {
	if progress == nil {
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	progress(pct, message)
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
