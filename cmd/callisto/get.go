package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/repo"
)

var getFlags struct {
	ref string
}

var getCmd = &cobra.Command{
	Use:   "get [paths...]",
	Short: "Read files from the working branch",
	Long: `Read one or more files and print their content. Multiple paths are
fetched concurrently in polite batches. A missing path prints a notice
instead of failing the whole command.

In offline mode, reads are served from the local cache where possible and
clearly tagged when falling back.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVar(&getFlags.ref, "ref", "", "branch or ref to read from (defaults to the working branch)")
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.client.ReadFiles(ctx, args, getFlags.ref)
	if err != nil {
		return cli.NewCommandError("get", err)
	}

	for _, r := range results {
		if r.Content == nil {
			fmt.Fprintf(os.Stderr, "%s: not found\n", r.Path)
			continue
		}
		if r.Source != repo.SourceLive {
			fmt.Fprintf(os.Stderr, "%s: served from %s\n", r.Path, r.Source)
		}
		if len(args) > 1 {
			fmt.Printf("==> %s <==\n", r.Path)
		}
		os.Stdout.Write(r.Content)
	}
	return nil
}
