package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/conflict"
)

var statusFlags struct {
	resolve bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show branch conflicts and recent deployments",
	Long: `Scan the working branch against the base branch, report any
conflicts with their suggested resolutions, and list recent deployments.

With --resolve, apply the safe automatic remedies: a timestamped backup
branch is always created first, and only a strictly-behind branch is
merged, and only when conflict.auto_merge is enabled in configuration.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusFlags.resolve, "resolve", false, "apply safe automatic resolutions")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	conflicts, err := a.analyzer.Scan(ctx, a.cfg.Repository.BaseBranch, a.cfg.Repository.Branch)
	if err != nil {
		return cli.NewCommandError("status", err)
	}

	if len(conflicts) == 0 {
		fmt.Printf("branch %q is clean against %q\n", a.cfg.Repository.Branch, a.cfg.Repository.BaseBranch)
	}
	for _, c := range conflicts {
		fmt.Printf("[%s] %s\n", c.Severity, c.Summary())
		for _, r := range c.Resolutions {
			fmt.Printf("  → %s (risk: %s)\n", r.Action, r.Risk)
			for _, step := range r.Steps {
				fmt.Printf("      - %s\n", step)
			}
		}
	}

	if statusFlags.resolve && len(conflicts) > 0 {
		report, err := a.analyzer.AttemptAutoResolution(ctx, conflicts, conflict.AutoResolveOptions{
			AutoMerge: a.cfg.Conflict.AutoMerge,
		})
		if err != nil {
			return cli.NewCommandError("status", err)
		}
		if report.BackupBranch != "" {
			fmt.Printf("backup branch: %s\n", report.BackupBranch)
		}
		for _, o := range report.Outcomes {
			if o.Resolved {
				fmt.Printf("resolved %s via merge %s\n", o.Conflict.Kind, o.MergeSHA)
			} else {
				fmt.Printf("left %s for manual handling: %s\n", o.Conflict.Kind, o.Reason)
			}
		}
	}

	deployments, err := a.client.ListDeployments(ctx)
	if err != nil {
		// Status should still be useful when the publish API is flaky.
		fmt.Fprintf(os.Stderr, "deployments unavailable: %v\n", err)
		return nil
	}

	if len(deployments) > 0 {
		fmt.Println("\nrecent deployments:")
		limit := len(deployments)
		if limit > 5 {
			limit = 5
		}
		for _, d := range deployments[:limit] {
			fmt.Printf("  %d  %-8s  %s  %s\n", d.ID, d.Status, shortSHA(d.Commit), d.UpdatedAt.Format("2006-01-02 15:04"))
		}
	}
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
