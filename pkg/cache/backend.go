package cache

import (
	"context"
	"time"
)

// StoredEntry is one persisted cache entry.
type StoredEntry struct {
	Key      Key
	Payload  Payload
	StoredAt time.Time
}

// Backend mirrors cache entries to durable storage. The in-memory cache is
// authoritative; backend failures degrade persistence, never correctness.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// Save persists one entry, replacing any previous value for the key.
	Save(ctx context.Context, key Key, payload Payload, storedAt time.Time) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys []Key) error

	// Load returns all persisted entries, oldest first.
	Load(ctx context.Context) ([]StoredEntry, error)

	// Close releases backend resources.
	Close() error
}
