package conflict

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/callisto/internal/remotetest"
	"mercator-hq/callisto/pkg/cache"
	"mercator-hq/callisto/pkg/events"
	"mercator-hq/callisto/pkg/offline"
	"mercator-hq/callisto/pkg/remote"
	"mercator-hq/callisto/pkg/repo"
	"mercator-hq/callisto/pkg/retry"
	"mercator-hq/callisto/pkg/throttle"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *recordingNotifier) Notify(e events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) byType(t events.Type) []events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []events.Event
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestAnalyzer(t *testing.T) (*Analyzer, *remotetest.Server, *recordingNotifier) {
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
		Repository: remote.RepositoryRef{Owner: "acme", Name: "site", Branch: "work"},
	}, rc, th, rp, cache.New(cache.Config{}), offline.New(offline.Config{Probe: rc.Ping}))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	srv.Respond("GET", "/user", remotetest.Response{
		StatusCode: http.StatusOK,
		Body:       map[string]string{"login": "tester"},
		Headers:    map[string]string{"X-OAuth-Scopes": "repo"},
	})

	notifier := &recordingNotifier{}
	analyzer, err := New(client, notifier)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	return analyzer, srv, notifier
}

func mockCompare(srv *remotetest.Server, status string, aheadBy, behindBy int) {
	srv.Respond("GET", "/repos/acme/site/compare/main...work", remotetest.JSON(map[string]any{
		"status":        status,
		"ahead_by":      aheadBy,
		"behind_by":     behindBy,
		"total_commits": aheadBy,
	}))
}

func TestScan_Behind(t *testing.T) {
	analyzer, srv, notifier := newTestAnalyzer(t)
	mockCompare(srv, "behind", 0, 3)

	conflicts, err := analyzer.Scan(context.Background(), "main", "work")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("Expected exactly 1 conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if c.Kind != KindBehind || c.Severity != SeverityWarning {
		t.Errorf("Expected behind/warning, got %s/%s", c.Kind, c.Severity)
	}
	if c.Evidence.BehindBy != 3 {
		t.Errorf("Expected behindBy=3, got %d", c.Evidence.BehindBy)
	}
	if len(c.Resolutions) != 1 {
		t.Fatalf("Expected a single resolution, got %d", len(c.Resolutions))
	}
	if r := c.Resolutions[0]; r.Action != ActionMerge || r.Risk != RiskLow {
		t.Errorf("Expected merge/low, got %s/%s", r.Action, r.Risk)
	}

	if got := notifier.byType(events.TypeConflict); len(got) != 1 {
		t.Errorf("Expected 1 conflict notification, got %d", len(got))
	}
}

func TestScan_Diverged(t *testing.T) {
	analyzer, srv, _ := newTestAnalyzer(t)
	mockCompare(srv, "diverged", 2, 4)

	conflicts, err := analyzer.Scan(context.Background(), "main", "work")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("Expected exactly 1 conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if c.Kind != KindDiverged || c.Severity != SeverityError {
		t.Errorf("Expected diverged/error, got %s/%s", c.Kind, c.Severity)
	}
	if c.Evidence.AheadBy != 2 || c.Evidence.BehindBy != 4 {
		t.Errorf("Unexpected evidence: %+v", c.Evidence)
	}
	if len(c.Resolutions) != 2 {
		t.Fatalf("Expected two resolutions, got %d", len(c.Resolutions))
	}
	if r := c.Resolutions[0]; r.Action != ActionRebase || r.Risk != RiskMedium {
		t.Errorf("Expected rebase/medium first, got %s/%s", r.Action, r.Risk)
	}
	if r := c.Resolutions[1]; r.Action != ActionNewBranch || r.Risk != RiskLow {
		t.Errorf("Expected new-branch/low second, got %s/%s", r.Action, r.Risk)
	}
}

func TestScan_OpenPeerChanges(t *testing.T) {
	analyzer, srv, _ := newTestAnalyzer(t)
	mockCompare(srv, "identical", 0, 0)
	srv.Respond("GET", "/repos/acme/site/pulls", remotetest.JSON([]map[string]any{
		{
			"number":   7,
			"state":    "open",
			"title":    "Update docs",
			"html_url": "https://example.test/pull/7",
			"user":     map[string]string{"login": "peer"},
		},
	}))

	conflicts, err := analyzer.Scan(context.Background(), "main", "work")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("Expected exactly 1 conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if c.Kind != KindOpenPeerChanges || c.Severity != SeverityInfo {
		t.Errorf("Expected open-peer-changes/info, got %s/%s", c.Kind, c.Severity)
	}
	if len(c.Evidence.PeerChanges) != 1 || c.Evidence.PeerChanges[0].Number != 7 {
		t.Errorf("Unexpected peer evidence: %+v", c.Evidence.PeerChanges)
	}
	if r := c.Resolutions[0]; r.Action != ActionCoordinate || r.Risk != RiskLow {
		t.Errorf("Expected coordinate/low, got %s/%s", r.Action, r.Risk)
	}
}

func TestScan_Clean(t *testing.T) {
	analyzer, srv, notifier := newTestAnalyzer(t)
	mockCompare(srv, "identical", 0, 0)
	srv.Respond("GET", "/repos/acme/site/pulls", remotetest.JSON([]map[string]any{}))

	conflicts, err := analyzer.Scan(context.Background(), "main", "work")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %+v", conflicts)
	}
	if got := notifier.byType(events.TypeConflict); len(got) != 0 {
		t.Errorf("Clean scan must not notify, got %d events", len(got))
	}
}

func mockBackupPlumbing(srv *remotetest.Server) {
	srv.Respond("GET", "/repos/acme/site/git/ref/heads/work", remotetest.JSON(map[string]any{
		"ref":    "refs/heads/work",
		"object": map[string]string{"type": "commit", "sha": "work-tip"},
	}))
	srv.Respond("POST", "/repos/acme/site/git/refs", remotetest.Response{
		StatusCode: http.StatusCreated,
		Body: map[string]any{
			"ref":    "refs/heads/backup",
			"object": map[string]string{"type": "commit", "sha": "work-tip"},
		},
	})
}

func TestAutoResolution_MergesBehindWhenEnabled(t *testing.T) {
	analyzer, srv, _ := newTestAnalyzer(t)
	mockCompare(srv, "behind", 0, 2)
	mockBackupPlumbing(srv)
	srv.Respond("POST", "/repos/acme/site/merges", remotetest.Response{
		StatusCode: http.StatusCreated,
		Body:       map[string]string{"sha": "merge-sha"},
	})

	conflicts, err := analyzer.Scan(context.Background(), "main", "work")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	report, err := analyzer.AttemptAutoResolution(context.Background(), conflicts, AutoResolveOptions{AutoMerge: true})
	if err != nil {
		t.Fatalf("AttemptAutoResolution failed: %v", err)
	}

	if report.BackupBranch == "" || !strings.HasPrefix(report.BackupBranch, "backup/work-") {
		t.Errorf("Expected a timestamped backup branch, got %q", report.BackupBranch)
	}
	if len(report.Outcomes) != 1 {
		t.Fatalf("Expected 1 outcome, got %d", len(report.Outcomes))
	}
	if o := report.Outcomes[0]; !o.Resolved || o.MergeSHA != "merge-sha" {
		t.Errorf("Expected resolved merge, got %+v", o)
	}

	// The backup ref was created before the merge ran.
	var sawBackup bool
	for _, r := range srv.Requests() {
		if r.Method == "POST" && r.Path == "/repos/acme/site/git/refs" {
			sawBackup = true
		}
		if r.Method == "POST" && r.Path == "/repos/acme/site/merges" && !sawBackup {
			t.Error("Merge ran before the backup branch was created")
		}
	}
	if !sawBackup {
		t.Error("Expected a backup branch creation request")
	}
}

func TestAutoResolution_NoOpWithoutOptIn(t *testing.T) {
	analyzer, srv, _ := newTestAnalyzer(t)
	mockCompare(srv, "behind", 0, 2)
	mockBackupPlumbing(srv)

	conflicts, err := analyzer.Scan(context.Background(), "main", "work")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	report, err := analyzer.AttemptAutoResolution(context.Background(), conflicts, AutoResolveOptions{})
	if err != nil {
		t.Fatalf("AttemptAutoResolution failed: %v", err)
	}
	if report.Outcomes[0].Resolved {
		t.Error("Conflict must stay unresolved without explicit opt-in")
	}
	if n := srv.RequestCount("POST", "/repos/acme/site/merges"); n != 0 {
		t.Errorf("No merge may run without opt-in, got %d", n)
	}
	// The backup safety net is still taken.
	if n := srv.RequestCount("POST", "/repos/acme/site/git/refs"); n != 1 {
		t.Errorf("Expected the backup branch regardless of opt-in, got %d creations", n)
	}
}

func TestAutoResolution_DivergedNeverMerged(t *testing.T) {
	analyzer, srv, _ := newTestAnalyzer(t)
	mockCompare(srv, "diverged", 1, 1)
	mockBackupPlumbing(srv)

	conflicts, err := analyzer.Scan(context.Background(), "main", "work")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	report, err := analyzer.AttemptAutoResolution(context.Background(), conflicts, AutoResolveOptions{AutoMerge: true})
	if err != nil {
		t.Fatalf("AttemptAutoResolution failed: %v", err)
	}
	if report.Outcomes[0].Resolved {
		t.Error("Diverged conflicts must never be auto-resolved")
	}
	if n := srv.RequestCount("POST", "/repos/acme/site/merges"); n != 0 {
		t.Errorf("No merge may run for diverged branches, got %d", n)
	}
}

func TestAutoResolution_BackupFailureDoesNotBlock(t *testing.T) {
	analyzer, srv, _ := newTestAnalyzer(t)
	mockCompare(srv, "behind", 0, 1)
	srv.Respond("GET", "/repos/acme/site/git/ref/heads/work", remotetest.JSON(map[string]any{
		"ref":    "refs/heads/work",
		"object": map[string]string{"type": "commit", "sha": "work-tip"},
	}))
	srv.Respond("POST", "/repos/acme/site/git/refs",
		remotetest.Error(http.StatusUnprocessableEntity, "Reference already exists"))
	srv.Respond("POST", "/repos/acme/site/merges", remotetest.Response{
		StatusCode: http.StatusCreated,
		Body:       map[string]string{"sha": "merge-sha"},
	})

	conflicts, err := analyzer.Scan(context.Background(), "main", "work")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	report, err := analyzer.AttemptAutoResolution(context.Background(), conflicts, AutoResolveOptions{AutoMerge: true})
	if err != nil {
		t.Fatalf("AttemptAutoResolution failed: %v", err)
	}
	if report.BackupBranch != "" {
		t.Errorf("Expected empty backup branch after failure, got %q", report.BackupBranch)
	}
	if o := report.Outcomes[0]; !o.Resolved || o.MergeSHA != "merge-sha" {
		t.Errorf("Merge must proceed despite the failed backup, got %+v", o)
	}
}

func TestAutoResolution_EmptyInput(t *testing.T) {
	analyzer, srv, _ := newTestAnalyzer(t)

	report, err := analyzer.AttemptAutoResolution(context.Background(), nil, AutoResolveOptions{AutoMerge: true})
	if err != nil {
		t.Fatalf("AttemptAutoResolution failed: %v", err)
	}
	if report.BackupBranch != "" || len(report.Outcomes) != 0 {
		t.Errorf("Expected empty report, got %+v", report)
	}
	if got := len(srv.Requests()); got != 0 {
		t.Errorf("Empty input must not touch the backend, saw %d requests", got)
	}
}
