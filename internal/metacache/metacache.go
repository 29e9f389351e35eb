// Package metacache is the single embedded relational store behind
// the transcript, content, summary, and slide-manifest caches: one
// sqlite-backed, namespaced key/value table with a pragma set and
// retry-on-lock helper tuned for a single-writer local database.
package metacache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shaneholloman/summarize/internal/apperrors"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	namespace TEXT NOT NULL,
	value BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	last_accessed_at INTEGER NOT NULL,
	size_bytes INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_namespace ON cache_entries(namespace);
CREATE INDEX IF NOT EXISTS idx_cache_entries_last_accessed ON cache_entries(last_accessed_at);
`

// Config bounds retry behavior and cache capacity.
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
	TTL        time.Duration
	MaxBytes   int64
}

// DefaultConfig returns the default retry shape plus cache-specific
// TTL/size defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		RetryDelay: time.Second,
		TTL:        30 * 24 * time.Hour,
		MaxBytes:   256 * 1024 * 1024,
	}
}

// Store is the namespaced metadata cache.
type Store struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

// Open creates (or attaches to) the sqlite database at path and
// ensures its schema exists.
func Open(path string, cfg Config, now func() time.Time) (*Store, error) {
	const op = "metacache.Open"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.Internal(op, err, "failed to create cache directory")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.Internal(op, err, "failed to open cache database")
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, apperrors.Internal(op, err, fmt.Sprintf("failed to set pragma: %s", p))
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.Internal(op, err, "failed to apply cache schema")
	}

	if now == nil {
		now = time.Now
	}
	return &Store{db: db, cfg: cfg, now: now}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for i := 0; i < s.cfg.MaxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return apperrors.Internal(op, err, "context cancelled")
		}
		if err := fn(); err != nil {
			lastErr = err
			time.Sleep(s.cfg.RetryDelay)
			continue
		}
		return nil
	}
	return apperrors.Internal(op, lastErr, "max retries exceeded")
}

// sweep deletes expired rows (created_at+ttl < now) and, if the total
// size still exceeds cfg.MaxBytes, evicts rows oldest-last_accessed_at
// first until under cap. Called on every read and write per spec
// §4.3.1.
func (s *Store) sweep(ctx context.Context) error {
	const op = "metacache.sweep"
	now := s.now().UnixMilli()

	if s.cfg.TTL > 0 {
		cutoff := now - s.cfg.TTL.Milliseconds()
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE created_at < ?`, cutoff); err != nil {
			return apperrors.Internal(op, err, "ttl sweep failed")
		}
	}

	if s.cfg.MaxBytes <= 0 {
		return nil
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size_bytes), 0) FROM cache_entries`).Scan(&total); err != nil {
		return apperrors.Internal(op, err, "size query failed")
	}
	if total <= s.cfg.MaxBytes {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, size_bytes FROM cache_entries ORDER BY last_accessed_at ASC`)
	if err != nil {
		return apperrors.Internal(op, err, "eviction scan failed")
	}
	defer rows.Close()

	var toEvict []string
	for rows.Next() && total > s.cfg.MaxBytes {
		var key string
		var size int64
		if err := rows.Scan(&key, &size); err != nil {
			return apperrors.Internal(op, err, "eviction scan failed")
		}
		toEvict = append(toEvict, key)
		total -= size
	}
	rows.Close()

	for _, key := range toEvict {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
			return apperrors.Internal(op, err, "eviction delete failed")
		}
	}
	return nil
}

// Get reads a cached value by key, refreshing last_accessed_at. ok is
// false on a miss (including an entry the TTL sweep just removed).
func (s *Store) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	const op = "metacache.Get"
	if swErr := s.withRetry(ctx, op, func() error { return s.sweep(ctx) }); swErr != nil {
		return nil, false, swErr
	}

	var v []byte
	var missed bool
	getErr := s.withRetry(ctx, op, func() error {
		row := s.db.QueryRowContext(ctx, `SELECT value FROM cache_entries WHERE key = ?`, key)
		err := row.Scan(&v)
		if err == sql.ErrNoRows {
			missed = true
			return nil
		}
		return err
	})
	if getErr != nil {
		return nil, false, getErr
	}
	if missed {
		return nil, false, nil
	}

	now := s.now().UnixMilli()
	_, _ = s.db.ExecContext(ctx, `UPDATE cache_entries SET last_accessed_at = ? WHERE key = ?`, now, key)
	return v, true, nil
}

// Put writes (or overwrites) a cached value under namespace, then
// sweeps.
func (s *Store) Put(ctx context.Context, key, namespace string, value []byte) error {
	const op = "metacache.Put"
	now := s.now().UnixMilli()

	err := s.withRetry(ctx, op, func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO cache_entries (key, namespace, value, created_at, last_accessed_at, size_bytes)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				created_at = excluded.created_at,
				last_accessed_at = excluded.last_accessed_at,
				size_bytes = excluded.size_bytes
		`, key, namespace, value, now, now, len(value))
		return execErr
	})
	if err != nil {
		return err
	}

	return s.withRetry(ctx, op, func() error { return s.sweep(ctx) })
}
