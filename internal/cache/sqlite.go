package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"whatsthedamage/internal/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteCache is a ResultCache backed by a SQLite table. Results are stored
// as JSON blobs with an absolute expiry, so worker and CLI processes can
// share one cache file.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) the cache database at path and applies
// pending migrations.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if err := runMigrations(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	// SQLite allows a single writer; serializing through one connection
	// avoids SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)

	return &SQLiteCache{db: db}, nil
}

func runMigrations(path string) error {
	// Separate connection so migrations do not interfere with the main one
	migrateDB, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := migratesqlite.WithInstance(migrateDB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Set stores a value in the cache
func (c *SQLiteCache) Set(ctx context.Context, key string, result core.CachedResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal cached result: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO results (key, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at
	`, key, payload, expiresAt)
	if err != nil {
		return fmt.Errorf("store result %s: %w", key, err)
	}
	return nil
}

// Get retrieves a value from the cache, treating expired rows as absent
func (c *SQLiteCache) Get(ctx context.Context, key string) (core.CachedResult, bool, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx, `
		SELECT payload FROM results
		WHERE key = ? AND expires_at > ?
	`, key, time.Now().Unix()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CachedResult{}, false, nil
	}
	if err != nil {
		return core.CachedResult{}, false, fmt.Errorf("load result %s: %w", key, err)
	}

	var result core.CachedResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return core.CachedResult{}, false, fmt.Errorf("unmarshal cached result %s: %w", key, err)
	}
	return result, true, nil
}

// Delete removes a key from the cache
func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM results WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete result %s: %w", key, err)
	}
	return nil
}

// CleanExpired removes expired entries and returns how many were dropped
func (c *SQLiteCache) CleanExpired() int {
	res, err := c.db.Exec(`DELETE FROM results WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// Close releases the underlying database handle.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
