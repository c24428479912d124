package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopsense/backend/internal/domain"
)

// Supported SQL drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var schemas = map[string]string{
	DriverPostgres: `CREATE TABLE IF NOT EXISTS search_cache (
		query      TEXT PRIMARY KEY,
		results    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	DriverSQLite: `CREATE TABLE IF NOT EXISTS search_cache (
		query      TEXT PRIMARY KEY,
		results    TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

const (
	selectEntryQuery = `SELECT query, results, created_at FROM search_cache WHERE query = ?`
	upsertEntryQuery = `INSERT INTO search_cache (query, results, created_at) VALUES (?, ?, ?)
		ON CONFLICT (query) DO UPDATE SET results = excluded.results, created_at = excluded.created_at`
)

// cacheRow mirrors the search_cache table. Results are read as text so the
// same scan works for JSONB and TEXT columns.
type cacheRow struct {
	Query     string    `db:"query"`
	Results   string    `db:"results"`
	CreatedAt time.Time `db:"created_at"`
}

// SQLCache stores CacheEntry rows in the search_cache table
type SQLCache struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLCache wraps an open database handle. The schema must already exist,
// see EnsureSchema.
func NewSQLCache(db *sqlx.DB, ttl time.Duration) *SQLCache {
	return &SQLCache{
		db:  db,
		ttl: ttl,
		now: time.Now,
	}
}

// OpenSQLCache connects with the given driver and creates the table if needed
func OpenSQLCache(ctx context.Context, driver, dsn string, ttl time.Duration) (*SQLCache, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("unsupported cache driver: %s", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %v", domain.ErrCacheUnavailable, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	cache := NewSQLCache(db, ttl)
	if err := cache.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return cache, nil
}

// EnsureSchema creates the search_cache table for the handle's dialect
func (c *SQLCache) EnsureSchema(ctx context.Context) error {
	ddl, ok := schemas[c.db.DriverName()]
	if !ok {
		return fmt.Errorf("unsupported cache driver: %s", c.db.DriverName())
	}
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create search_cache table: %w", err)
	}
	return nil
}

// SetClock replaces the time source used for freshness checks
func (c *SQLCache) SetClock(now func() time.Time) {
	c.now = now
}

// Get looks the query up and applies the timestamp filter
func (c *SQLCache) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	var row cacheRow
	err := c.db.GetContext(ctx, &row, c.db.Rebind(selectEntryQuery), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select: %v", domain.ErrCacheUnavailable, err)
	}

	entry := &domain.CacheEntry{
		Query:     row.Query,
		Results:   []byte(row.Results),
		CreatedAt: row.CreatedAt,
	}
	if !entry.IsFresh(c.now(), c.ttl) {
		return nil, domain.ErrCacheMiss
	}

	return entry, nil
}

// Put upserts the entry on its query key
func (c *SQLCache) Put(ctx context.Context, entry *domain.CacheEntry) error {
	if entry == nil || entry.Query == "" {
		return domain.ErrInvalidRequest
	}

	_, err := c.db.ExecContext(ctx, c.db.Rebind(upsertEntryQuery),
		entry.Query, string(entry.Results), entry.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Close closes the database connection
func (c *SQLCache) Close() error {
	return c.db.Close()
}
