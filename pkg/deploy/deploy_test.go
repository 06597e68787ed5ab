package deploy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/callisto/internal/remotetest"
	"mercator-hq/callisto/pkg/cache"
	"mercator-hq/callisto/pkg/offline"
	"mercator-hq/callisto/pkg/remote"
	"mercator-hq/callisto/pkg/repo"
	"mercator-hq/callisto/pkg/retry"
	"mercator-hq/callisto/pkg/throttle"
)

func newTestClient(t *testing.T) (*repo.Client, *remotetest.Server) {
	t.Helper()

	srv := remotetest.New()
	t.Cleanup(srv.Close)

	rc, err := remote.NewClient(remote.ClientConfig{BaseURL: srv.URL()}, remote.StaticCredentials("test-token"))
	if err != nil {
		t.Fatalf("Failed to create transport: %v", err)
	}

	th := throttle.New(throttle.Limits{
		MinInterval:  time.Nanosecond,
		PerMinute:    100000,
		PerHour:      1000000,
		SafetyMargin: time.Nanosecond,
	})

	rp := retry.NewPolicy()
	rp.BaseDelay = time.Millisecond
	rp.MaxDelay = 5 * time.Millisecond

	client, err := repo.New(repo.Config{
		Repository: remote.RepositoryRef{Owner: "acme", Name: "site", Branch: "main"},
	}, rc, th, rp, cache.New(cache.Config{}), offline.New(offline.Config{Probe: rc.Ping}))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client, srv
}

// newTestMonitor wires a monitor to a fake clock: every sleep advances the
// clock by the slept duration, so a 5-minute budget plays out instantly.
func newTestMonitor(t *testing.T, client *repo.Client, config Config) *Monitor {
	t.Helper()

	m, err := New(client, config)
	if err != nil {
		t.Fatalf("Failed to create monitor: %v", err)
	}

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	m.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		clock = clock.Add(d)
		return nil
	}
	return m
}

func deployment(id int64, status, commit string) map[string]any {
	return map[string]any{"id": id, "status": status, "commit": commit}
}

func TestWait_CompletesAfterMatch(t *testing.T) {
	client, srv := newTestClient(t)
	srv.RespondSeq("GET", "/repos/acme/site/pages/builds",
		remotetest.JSON([]map[string]any{}),
		remotetest.JSON([]map[string]any{deployment(1, remote.DeploymentPending, "abc123")}),
		remotetest.JSON([]map[string]any{deployment(1, remote.DeploymentBuilding, "abc123")}),
		remotetest.JSON([]map[string]any{deployment(1, remote.DeploymentCompleted, "abc123")}),
	)

	m := newTestMonitor(t, client, Config{})

	var lastPct int
	result, err := m.Wait(context.Background(), "abc123", func(pct int, message string) {
		if pct < lastPct {
			t.Errorf("Progress went backwards: %d after %d", pct, lastPct)
		}
		lastPct = pct
	})
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if result.State != StateCompleted {
		t.Errorf("Expected completed, got %s", result.State)
	}
	if result.Deployment == nil || result.Deployment.ID != 1 {
		t.Errorf("Expected matched deployment, got %+v", result.Deployment)
	}
	if result.Polls != 4 {
		t.Errorf("Expected 4 polls, got %d", result.Polls)
	}
	// Three 10s inter-poll sleeps before the completing poll.
	if result.Elapsed != 30*time.Second {
		t.Errorf("Expected 30s elapsed, got %s", result.Elapsed)
	}
	if lastPct != 100 {
		t.Errorf("Expected final progress 100, got %d", lastPct)
	}
}

func TestWait_TimesOutWhenNothingMatches(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Respond("GET", "/repos/acme/site/pages/builds",
		remotetest.JSON([]map[string]any{deployment(9, remote.DeploymentCompleted, "someone-else")}))

	m := newTestMonitor(t, client, Config{Interval: 10 * time.Second, Budget: 5 * time.Minute})

	result, err := m.Wait(context.Background(), "abc123", nil)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if result.State != StateTimeout {
		t.Errorf("Expected timeout, got %s", result.State)
	}
	if result.Deployment != nil {
		t.Errorf("Expected no matched deployment, got %+v", result.Deployment)
	}
	// The whole five-minute budget at one poll per 10s.
	if result.Polls != 30 {
		t.Errorf("Expected 30 polls, got %d", result.Polls)
	}
}

func TestWait_ErroredDeploymentFails(t *testing.T) {
	client, srv := newTestClient(t)
	srv.RespondSeq("GET", "/repos/acme/site/pages/builds",
		remotetest.JSON([]map[string]any{deployment(2, remote.DeploymentBuilding, "abc123")}),
		remotetest.JSON([]map[string]any{deployment(2, remote.DeploymentErrored, "abc123")}),
	)

	m := newTestMonitor(t, client, Config{})

	result, err := m.Wait(context.Background(), "abc123", nil)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if result.State != StateFailed {
		t.Errorf("Expected failed, got %s", result.State)
	}
}

func TestWait_AbsorbsPollFailures(t *testing.T) {
	client, srv := newTestClient(t)
	// Three 503s exhaust the low-level retry budget for the first poll;
	// the watch shrugs and the next poll succeeds.
	srv.RespondSeq("GET", "/repos/acme/site/pages/builds",
		remotetest.Error(http.StatusServiceUnavailable, "down"),
		remotetest.Error(http.StatusServiceUnavailable, "down"),
		remotetest.Error(http.StatusServiceUnavailable, "down"),
		remotetest.JSON([]map[string]any{deployment(3, remote.DeploymentCompleted, "abc123")}),
	)

	m := newTestMonitor(t, client, Config{})

	result, err := m.Wait(context.Background(), "abc123", nil)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if result.State != StateCompleted {
		t.Errorf("Expected completed despite flaky polls, got %s", result.State)
	}
	if result.Polls != 2 {
		t.Errorf("Expected 2 polls, got %d", result.Polls)
	}
}

func TestWait_Cancelled(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Respond("GET", "/repos/acme/site/pages/builds", remotetest.JSON([]map[string]any{}))

	m, err := New(client, Config{Interval: time.Hour, Budget: 24 * time.Hour})
	if err != nil {
		t.Fatalf("Failed to create monitor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var result *Result
	var waitErr error
	go func() {
		defer close(done)
		result, waitErr = m.Wait(ctx, "abc123", nil)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}

	if waitErr == nil {
		t.Error("Expected a cancellation error")
	}
	if result == nil || result.State != StateCancelled {
		t.Errorf("Expected cancelled state, got %+v", result)
	}
}

func TestVerifyContent_AllMarkersPresent(t *testing.T) {
	client, srv := newTestClient(t)

	published := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>Welcome to the docs portal v2.4</body></html>"))
	}))
	t.Cleanup(published.Close)

	srv.Respond("GET", "/repos/acme/site/pages", remotetest.JSON(map[string]any{
		"html_url": published.URL,
		"status":   "built",
	}))

	v, err := NewVerifier(client)
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}

	result, err := v.VerifyContent(context.Background(), []string{"docs portal", "v2.4"})
	if err != nil {
		t.Fatalf("VerifyContent failed: %v", err)
	}
	if !result.Verified || len(result.MissingMarkers) != 0 {
		t.Errorf("Expected verified, got %+v", result)
	}
}

func TestVerifyContent_MissingMarkerIsNotAnError(t *testing.T) {
	client, srv := newTestClient(t)

	published := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>stale edge copy</body></html>"))
	}))
	t.Cleanup(published.Close)

	srv.Respond("GET", "/repos/acme/site/pages", remotetest.JSON(map[string]any{
		"html_url": published.URL,
		"status":   "built",
	}))

	v, err := NewVerifier(client)
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}

	result, err := v.VerifyContent(context.Background(), []string{"v2.4"})
	if err != nil {
		t.Fatalf("Missing markers must not be an error: %v", err)
	}
	if result.Verified {
		t.Error("Expected not-verified for stale content")
	}
	if len(result.MissingMarkers) != 1 || result.MissingMarkers[0] != "v2.4" {
		t.Errorf("Unexpected missing markers: %v", result.MissingMarkers)
	}
}

func TestVerifyURL_NonOKReportsUnverified(t *testing.T) {
	client, _ := newTestClient(t)

	published := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not yet", http.StatusNotFound)
	}))
	t.Cleanup(published.Close)

	v, err := NewVerifier(client)
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}

	result, err := v.VerifyURL(context.Background(), published.URL, []string{"v2.4"})
	if err != nil {
		t.Fatalf("A 404 from the edge must not be an error: %v", err)
	}
	if result.Verified || result.StatusCode != http.StatusNotFound {
		t.Errorf("Expected unverified 404, got %+v", result)
	}
}
