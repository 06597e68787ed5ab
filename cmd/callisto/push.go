package main

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/deploy"
	"mercator-hq/callisto/pkg/repo"
)

var pushFlags struct {
	message string
	watch   bool
	verify  bool
}

var pushCmd = &cobra.Command{
	Use:   "push [files...]",
	Short: "Commit local files to the working branch",
	Long: `Commit one or more local files to the working branch as a single
atomic commit. The branch ref only advances when every file uploaded
successfully; a failure partway leaves the branch untouched.

With --watch, wait for the deployment triggered by the commit; with
--verify, additionally fetch the published content and check it for the
configured markers.

Examples:
  # Commit two files
  callisto push --message "update docs" docs/index.md docs/faq.md

  # Commit and wait for the deployment
  callisto push --message "release notes" --watch notes.md

  # Commit, wait, and verify the published content
  callisto push --message "v2.4" --watch --verify index.html`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().StringVarP(&pushFlags.message, "message", "m", "", "commit message (required)")
	pushCmd.Flags().BoolVar(&pushFlags.watch, "watch", false, "wait for the triggered deployment")
	pushCmd.Flags().BoolVar(&pushFlags.verify, "verify", false, "verify published content after deployment (implies --watch)")
	pushCmd.MarkFlagRequired("message")
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	files := make([]repo.CommitFile, len(args))
	for i, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return cli.NewCommandError("push", fmt.Errorf("reading %q: %w", path, err))
		}
		files[i] = repo.CommitFile{
			Path:    filepath.ToSlash(path),
			Content: content,
			Binary:  !utf8.Valid(content),
		}
	}

	progress := cli.NewProgress(os.Stderr)
	result, err := a.client.CommitFiles(ctx, files, pushFlags.message, progress.Report)
	if err != nil {
		progress.Fail(err)
		return cli.NewCommandError("push", err)
	}
	progress.Done()

	formatter := cli.NewFormatter(cli.OutputFormat(outputFormat))
	if err := formatter.FormatTo(os.Stdout, map[string]any{
		"commit": result.CommitSHA,
		"tree":   result.TreeSHA,
		"files":  result.Files,
	}); err != nil {
		return err
	}

	if !pushFlags.watch && !pushFlags.verify {
		return nil
	}

	watchProgress := cli.NewProgress(os.Stderr)
	watch, err := a.monitor.Wait(ctx, result.CommitSHA, watchProgress.Report)
	if err != nil {
		watchProgress.Fail(err)
		return cli.NewCommandError("push", err)
	}
	watchProgress.Done()
	fmt.Fprintf(os.Stderr, "deployment: %s after %d poll(s)\n", watch.State, watch.Polls)

	if watch.State != deploy.StateCompleted || !pushFlags.verify {
		return nil
	}

	verification, err := a.verifier.VerifyContent(ctx, a.cfg.Deploy.VerifyMarkers)
	if err != nil {
		return cli.NewCommandError("push", err)
	}
	if verification.Verified {
		fmt.Fprintf(os.Stderr, "verified: %s\n", verification.URL)
	} else {
		// Possibly an edge cache still serving the previous build.
		fmt.Fprintf(os.Stderr, "not yet verified: %s (missing %v)\n",
			verification.URL, verification.MissingMarkers)
	}
	return nil
}
