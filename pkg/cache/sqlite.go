package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend persists cache entries to a SQLite database so a restart
// can rewarm the cache. It uses a write-ahead log for better concurrent
// performance.
type SQLiteBackend struct {
	db        *sql.DB
	mu        sync.Mutex
	closeOnce sync.Once

	saveStmt   *sql.Stmt
	deleteStmt *sql.Stmt
	loadStmt   *sql.Stmt
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	repo      TEXT NOT NULL,
	path      TEXT NOT NULL,
	ref       TEXT NOT NULL,
	content   BLOB,
	sha       TEXT NOT NULL DEFAULT '',
	missing   INTEGER NOT NULL DEFAULT 0,
	stored_at INTEGER NOT NULL,
	PRIMARY KEY (repo, path, ref)
);
CREATE INDEX IF NOT EXISTS idx_cache_stored_at ON cache_entries(stored_at);
`

// NewSQLiteBackend opens (or creates) the database at dbPath.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; the in-memory cache already serializes access.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	b := &SQLiteBackend{db: db}
	if err := b.prepare(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) prepare() error {
	var err error

	b.saveStmt, err = b.db.Prepare(`
		INSERT INTO cache_entries (repo, path, ref, content, sha, missing, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo, path, ref) DO UPDATE SET
			content = excluded.content,
			sha = excluded.sha,
			missing = excluded.missing,
			stored_at = excluded.stored_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	b.deleteStmt, err = b.db.Prepare(
		`DELETE FROM cache_entries WHERE repo = ? AND path = ? AND ref = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	b.loadStmt, err = b.db.Prepare(
		`SELECT repo, path, ref, content, sha, missing, stored_at
		 FROM cache_entries ORDER BY stored_at ASC`)
	if err != nil {
		return fmt.Errorf("failed to prepare load statement: %w", err)
	}

	return nil
}

// Save implements Backend.
func (b *SQLiteBackend) Save(ctx context.Context, key Key, payload Payload, storedAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	missing := 0
	if payload.Missing {
		missing = 1
	}

	_, err := b.saveStmt.ExecContext(ctx,
		key.Repo, key.Path, key.Ref,
		payload.Content, payload.SHA, missing, storedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

// Delete implements Backend.
func (b *SQLiteBackend) Delete(ctx context.Context, keys []Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []string
	for _, key := range keys {
		if _, err := b.deleteStmt.ExecContext(ctx, key.Repo, key.Path, key.Ref); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete %d entries: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Load implements Backend.
func (b *SQLiteBackend) Load(ctx context.Context) ([]StoredEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.loadStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entries: %w", err)
	}
	defer rows.Close()

	var entries []StoredEntry
	for rows.Next() {
		var e StoredEntry
		var missing int
		var storedAt int64
		if err := rows.Scan(&e.Key.Repo, &e.Key.Path, &e.Key.Ref,
			&e.Payload.Content, &e.Payload.SHA, &missing, &storedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		e.Payload.Missing = missing != 0
		e.StoredAt = time.Unix(0, storedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{b.saveStmt, b.deleteStmt, b.loadStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = b.db.Close()
	})
	return err
}
