package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "callisto",
	Short: "Callisto - resilient client for remote version-controlled file stores",
	Long: `Callisto is a resilient client for remote version-controlled file stores.

It wraps a contents/git-data/pages style HTTP API with:
  - Local request throttling with rolling-window ceilings
  - Classified retries with exponential backoff
  - Offline mode serving reads from a local cache
  - Atomic multi-file commits with ref-advance-last ordering
  - Branch conflict detection and safe auto-resolution
  - Deployment polling and published-content verification

For more information, visit: https://github.com/mercator-hq/callisto`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "callisto.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
