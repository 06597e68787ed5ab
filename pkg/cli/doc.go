/*
Package cli provides command-line interface utilities for Callisto.

The cli package includes output formatters, a progress renderer, and common
CLI helpers used by the callisto command.

Output Formatting:

The cli package supports text and JSON output for command results:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Progress Reporting:

Long operations report percentage progress through callbacks; the progress
renderer turns those into a terminal bar:

	progress := cli.NewProgress(os.Stderr)
	result, err := client.CommitFiles(ctx, files, message, progress.Report)
	progress.Done()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
*/
package cli
