package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify credentials, connectivity and publish configuration",
	Long: `Authenticate against the remote store and report the account,
its granted scopes, and whether writes are permitted. Also checks basic
connectivity, the current rate-limit budget, and the published site URL.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	access, err := a.client.CheckAccess(ctx)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	if !access.OK {
		fmt.Println("credential: rejected")
		return cli.NewCommandError("check", fmt.Errorf("credential was not accepted by the remote store"))
	}

	fmt.Printf("credential: ok (authenticated as %s)\n", access.Login)
	fmt.Printf("scopes:     %s\n", strings.Join(access.Scopes, ", "))
	if access.CanWrite {
		fmt.Println("writes:     permitted")
	} else {
		fmt.Println("writes:     NOT permitted (missing repo scope)")
	}

	if err := a.remote.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "connectivity: failed: %v\n", err)
	} else {
		fmt.Println("connectivity: ok")
	}

	if rate := a.remote.RateLimitState(); !rate.UpdatedAt.IsZero() {
		fmt.Printf("rate limit: %d/%d remaining, resets %s\n",
			rate.Remaining, rate.Limit, rate.Reset.Local().Format(time.Kitchen))
	}

	if url, err := a.client.PublishedURL(ctx); err == nil && url != "" {
		fmt.Printf("published:  %s\n", url)
	} else {
		fmt.Println("published:  no site configured")
	}

	return nil
}
