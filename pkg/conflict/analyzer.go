package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/events"
	"mercator-hq/callisto/pkg/repo"
)

// Analyzer scans for branch conflicts and optionally applies the one safe
// automatic remedy.
type Analyzer struct {
	client   *repo.Client
	notifier events.Notifier
	now      func() time.Time
}

// New creates an analyzer over the given repository client. A nil notifier
// disables event notifications.
func New(client *repo.Client, notifier events.Notifier) (*Analyzer, error) {
	if client == nil {
		return nil, fmt.Errorf("conflict: repository client is required")
	}
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Analyzer{
		client:   client,
		notifier: notifier,
		now:      time.Now,
	}, nil
}

// Scan compares the working branch against the base branch and returns the
// conflicts found, each with its applicable resolutions. An empty slice
// means the branches are in a clean state.
func (a *Analyzer) Scan(ctx context.Context, base, working string) ([]Conflict, error) {
	cmp, err := a.client.CompareBranches(ctx, base, working)
	if err != nil {
		return nil, fmt.Errorf("conflict scan: comparing %s...%s: %w", base, working, err)
	}
	scansTotal.Inc()

	var conflicts []Conflict
	switch {
	case cmp.BehindBy > 0 && cmp.AheadBy > 0:
		conflicts = append(conflicts, a.build(KindDiverged, SeverityError, base, working, Evidence{
			AheadBy:  cmp.AheadBy,
			BehindBy: cmp.BehindBy,
		}))

	case cmp.BehindBy > 0:
		conflicts = append(conflicts, a.build(KindBehind, SeverityWarning, base, working, Evidence{
			BehindBy: cmp.BehindBy,
		}))

	case cmp.AheadBy == 0 && cmp.BehindBy == 0:
		// Identical branches: the only remaining hazard is a peer change
		// landing on the working branch underneath us.
		pulls, err := a.client.ListOpenPulls(ctx, working)
		if err != nil {
			return nil, fmt.Errorf("conflict scan: listing peer changes for %q: %w", working, err)
		}
		if len(pulls) > 0 {
			evidence := Evidence{PeerChanges: make([]PeerChange, len(pulls))}
			for i, p := range pulls {
				evidence.PeerChanges[i] = PeerChange{
					Number: p.Number,
					Title:  p.Title,
					Author: p.User.Login,
					URL:    p.URL,
				}
			}
			conflicts = append(conflicts, a.build(KindOpenPeerChanges, SeverityInfo, base, working, evidence))
		}
	}

	for _, c := range conflicts {
		conflictsTotal.WithLabelValues(string(c.Kind)).Inc()
		a.notifier.Notify(events.Event{
			Type:    events.TypeConflict,
			Message: c.Summary(),
			At:      a.now(),
			Fields: map[string]string{
				"kind":     string(c.Kind),
				"severity": string(c.Severity),
				"base":     base,
				"working":  working,
			},
		})
	}

	return conflicts, nil
}

func (a *Analyzer) build(kind Kind, severity Severity, base, working string, evidence Evidence) Conflict {
	return Conflict{
		Kind:        kind,
		Severity:    severity,
		Base:        base,
		Working:     working,
		Evidence:    evidence,
		Resolutions: resolutionsFor(kind),
	}
}

// AutoResolveOptions controls which remedies AttemptAutoResolution may
// apply on its own.
type AutoResolveOptions struct {
	// AutoMerge permits merging the base into a strictly-behind working
	// branch. Without it no conflict is touched.
	AutoMerge bool
}

// Outcome records what happened to one conflict during auto-resolution.
type Outcome struct {
	Conflict Conflict

	// Resolved is true when the conflict was remedied automatically.
	Resolved bool

	// MergeSHA is the merge commit, when a merge was performed.
	MergeSHA string

	// Reason explains why the conflict was left for manual handling.
	Reason string
}

// Report summarizes one auto-resolution pass.
type Report struct {
	// BackupBranch is the safety-net branch created before any remedy,
	// or empty if the backup could not be created.
	BackupBranch string

	Outcomes []Outcome
}

// AttemptAutoResolution applies the safe automatic remedies to the given
// conflicts. A timestamped backup branch at the current working tip is
// always created first; failure to create it is logged and remediation
// proceeds regardless. Only behind conflicts are merged, and only with
// opts.AutoMerge set. All other conflicts come back unresolved.
func (a *Analyzer) AttemptAutoResolution(ctx context.Context, conflicts []Conflict, opts AutoResolveOptions) (*Report, error) {
	report := &Report{}
	if len(conflicts) == 0 {
		return report, nil
	}

	working := conflicts[0].Working
	report.BackupBranch = a.createBackup(ctx, working)

	for _, c := range conflicts {
		outcome := Outcome{Conflict: c}

		switch {
		case c.Kind != KindBehind:
			outcome.Reason = fmt.Sprintf("%s conflicts are never auto-resolved", c.Kind)

		case !opts.AutoMerge:
			outcome.Reason = "auto-merge not enabled"

		default:
			message := fmt.Sprintf("Merge %s into %s to catch up", c.Base, c.Working)
			sha, err := a.client.MergeBranches(ctx, c.Working, c.Base, message)
			if err != nil {
				outcome.Reason = fmt.Sprintf("merge failed: %v", err)
				slog.Warn("auto-merge failed",
					"base", c.Base,
					"working", c.Working,
					"error", err,
				)
				break
			}
			outcome.Resolved = true
			outcome.MergeSHA = sha
			autoMergesTotal.Inc()
			slog.Info("auto-merged base into working branch",
				"base", c.Base,
				"working", c.Working,
				"merge_sha", sha,
			)
		}

		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, nil
}

// createBackup snapshots the current working tip into a fresh branch. Best
// effort: a failure is logged and an empty name returned.
func (a *Analyzer) createBackup(ctx context.Context, working string) string {
	tip, err := a.client.ResolveTip(ctx, working)
	if err != nil {
		slog.Warn("backup branch skipped, could not resolve tip",
			"branch", working,
			"error", err,
		)
		return ""
	}

	name := fmt.Sprintf("backup/%s-%s-%s",
		working,
		a.now().UTC().Format("20060102-150405"),
		uuid.New().String()[:8],
	)
	if err := a.client.CreateBranch(ctx, name, tip); err != nil {
		slog.Warn("backup branch creation failed",
			"branch", name,
			"tip", tip,
			"error", err,
		)
		return ""
	}

	slog.Info("backup branch created", "branch", name, "tip", tip)
	return name
}
