// Package repo provides the repository client: the orchestration layer that
// composes the throttle, retry policy, cache and offline controller around
// the raw HTTP transport.
//
// # Overview
//
// Client is the public surface callers use. Every network-bound operation
// passes through the local throttle and the retry policy; read operations
// additionally consult the offline controller and the cache first. The
// transport's typed errors drive classification at each layer.
//
// # Construction
//
// All collaborators are injected explicitly; there are no package-level
// singletons:
//
//	client := repo.New(repo.Config{Repository: ref},
//	    transport, throttle.New(throttle.DefaultLimits()),
//	    retry.NewPolicy(), cache.New(cache.Config{}), offlineCtrl)
//
// # Reads
//
// ReadFile returns a nil Content (not an error) when the path does not
// exist. Results carry a Source tag so callers can distinguish live data
// from cache or fallback data served in offline mode. ReadFiles fans out in
// bounded batches with a polite inter-batch pause.
//
// # Writes
//
// WriteFile performs an advisory version check (read the current tag, send
// it with the update); it is not a lock. CommitFiles builds one atomic
// multi-file commit from blobs, a tree, a commit object and a final ref
// advance; because the ref advance is the last step, a failure at any
// earlier step leaves the branch untouched.
package repo
