// Package cache stores compiled modules in a SQLite database keyed by the
// hash of their sources.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"mpl/internal/logging"
)

const schema = `CREATE TABLE IF NOT EXISTS modules (
	key        TEXT PRIMARY KEY,
	wasm       BLOB NOT NULL,
	created_at INTEGER NOT NULL
)`

type Cache struct {
	db  *sql.DB
	log *zap.Logger
}

// DefaultPath is modules.db under the user cache directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mpl", "modules.db"), nil
}

// Open opens or creates the cache database at path. ":memory:" gives a
// private in-memory cache.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("cache dir error: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache open error: %w", err)
	}
	// an in-memory database lives only as long as its one connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache schema error: %w", err)
	}
	return &Cache{db: db, log: logging.Named("cache")}, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var wasm []byte
	err := c.db.QueryRowContext(ctx, "SELECT wasm FROM modules WHERE key = ?", key).Scan(&wasm)
	if errors.Is(err, sql.ErrNoRows) {
		c.log.Debug("miss", zap.String("key", key))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache read error: %w", err)
	}
	c.log.Debug("hit", zap.String("key", key), zap.Int("bytes", len(wasm)))
	return wasm, true, nil
}

// Put stores wasm under key, replacing any earlier entry.
func (c *Cache) Put(ctx context.Context, key string, wasm []byte) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO modules (key, wasm, created_at) VALUES (?, ?, ?)",
		key, wasm, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("cache write error: %w", err)
	}
	return nil
}

// Prune deletes entries created before cutoff and reports how many went.
func (c *Cache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM modules WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("cache prune error: %w", err)
	}
	return res.RowsAffected()
}

func (c *Cache) Close() error {
	return c.db.Close()
}
