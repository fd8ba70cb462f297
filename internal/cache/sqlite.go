package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// DiskCache is a SQLite-backed route cache. It survives process restarts,
// unlike the in-memory TTL layer in front of it.
type DiskCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewDiskCache opens (or creates) the cache database at the given path and
// configures WAL mode. Entries expire after ttl; zero means 24 hours.
func NewDiskCache(dsn string, ttl time.Duration) (*DiskCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DiskCache{db: db, ttl: ttl}, nil
}

const diskMigration = `
CREATE TABLE IF NOT EXISTS route_cache (
	key        TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_route_cache_expires_at ON route_cache(expires_at);
`

// Migrate creates the cache schema if it does not exist.
func (c *DiskCache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, diskMigration)
	return eris.Wrap(err, "cache: migrate")
}

// Close releases the underlying database handle.
func (c *DiskCache) Close() error {
	return c.db.Close()
}

// Get unmarshals the cached payload for key into v. It returns false when the
// key is absent or expired.
func (c *DiskCache) Get(ctx context.Context, key string, v any) (bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT payload FROM route_cache
		 WHERE key = ? AND expires_at > datetime('now')`,
		key,
	)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "cache: get")
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return false, eris.Wrap(err, "cache: unmarshal payload")
	}
	return true, nil
}

// Set stores v under key, replacing any previous entry.
func (c *DiskCache) Set(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "cache: marshal payload")
	}

	now := time.Now().UTC()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO route_cache (key, payload, created_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload,
		                                created_at = excluded.created_at,
		                                expires_at = excluded.expires_at`,
		key, string(payload), now, now.Add(c.ttl),
	)
	return eris.Wrap(err, "cache: set")
}

// Sweep deletes expired entries and reports how many were removed.
func (c *DiskCache) Sweep(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM route_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "cache: sweep")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "cache: rows affected")
}
