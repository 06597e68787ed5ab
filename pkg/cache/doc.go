// Package cache provides a bounded, TTL-based store of recent successful
// read results.
//
// # Overview
//
// Entries are keyed by (repository, path, ref) and expire after a fixed
// TTL, checked lazily at read time: an expired entry reads as a miss and is
// removed on the spot. Capacity is bounded; when an insertion would exceed
// the maximum entry count, the 20% oldest-stored entries are evicted first.
//
// Stored payloads are deep-copied on insertion and on read, so callers
// mutating their own buffers cannot corrupt cache state.
//
// # Persistence
//
// The cache is authoritative in memory. An optional Backend mirrors entries
// to durable storage (SQLite) so a restart can rewarm the cache; mirror
// failures are logged and never fail the caller. Losing the mirror is
// acceptable and self-heals.
//
// # Sweeping
//
// Expiry is lazy, so entries that are never read again would linger until
// evicted. A cron-scheduled janitor sweeps them out periodically.
package cache
