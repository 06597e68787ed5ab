// Callisto is a resilient client for remote version-controlled file stores.
//
// It wraps a GitHub-shaped contents/git-data/pages API with local request
// throttling, classified retries, offline-mode caching, atomic multi-file
// commits, branch conflict analysis, and deployment monitoring.
//
// Usage:
//
//	# Verify credentials and connectivity
//	callisto check
//
//	# Read a file from the working branch
//	callisto get docs/index.md
//
//	# Commit files atomically and watch the deployment
//	callisto push --message "update docs" --watch docs/index.md docs/faq.md
//
//	# Show branch conflicts and recent deployments
//	callisto status
//
// For complete documentation, see: https://github.com/mercator-hq/callisto
package main

func main() {
	Execute()
}
