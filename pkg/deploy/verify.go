package deploy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mercator-hq/callisto/pkg/repo"
)

// maxVerifyBody bounds how much published content is read for marker
// checks.
const maxVerifyBody = 4 << 20

// Verification is the outcome of a published-content check. Not-verified
// is a reportable condition, not a failure: edge caches can serve stale
// content for a while after a deployment completes.
type Verification struct {
	// URL is the published location that was fetched.
	URL string

	StatusCode int

	// Verified is true when the fetch succeeded and every marker was
	// present.
	Verified bool

	// MissingMarkers lists the expected markers not found in the body.
	MissingMarkers []string
}

// Verifier fetches published content and checks it for expected markers.
// It talks to the public publish endpoint, not the API, so it carries its
// own HTTP client and bypasses the API-side throttle and retry machinery.
type Verifier struct {
	client *repo.Client
	http   *http.Client
}

// NewVerifier creates a verifier over the given repository client.
func NewVerifier(client *repo.Client) (*Verifier, error) {
	if client == nil {
		return nil, fmt.Errorf("deploy: repository client is required")
	}
	return &Verifier{
		client: client,
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// VerifyContent fetches the published URL and checks the body for every
// marker. A reachable page with missing markers reports Verified=false
// with nil error; only an unreachable publish target is an error.
func (v *Verifier) VerifyContent(ctx context.Context, markers []string) (*Verification, error) {
	url, err := v.client.PublishedURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify: resolving published URL: %w", err)
	}
	return v.verifyURL(ctx, url, markers)
}

// VerifyURL is VerifyContent against an explicit URL, for callers that
// already know the publish location.
func (v *Verifier) VerifyURL(ctx context.Context, url string, markers []string) (*Verification, error) {
	return v.verifyURL(ctx, url, markers)
}

func (v *Verifier) verifyURL(ctx context.Context, url string, markers []string) (*Verification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("verify: building request: %w", err)
	}
	// Ask intermediaries for fresh content; they are free to ignore it.
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	result := &Verification{URL: url, StatusCode: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		result.MissingMarkers = append([]string(nil), markers...)
		return result, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVerifyBody))
	if err != nil {
		return nil, fmt.Errorf("verify: reading %s: %w", url, err)
	}

	text := string(body)
	for _, marker := range markers {
		if !strings.Contains(text, marker) {
			result.MissingMarkers = append(result.MissingMarkers, marker)
		}
	}
	result.Verified = len(result.MissingMarkers) == 0
	if result.Verified {
		verificationsTotal.WithLabelValues("verified").Inc()
	} else {
		verificationsTotal.WithLabelValues("not_verified").Inc()
	}
	return result, nil
}
