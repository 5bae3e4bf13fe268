// Package postgres owns the process-wide database pool. The pool is created
// once in main with explicit limits and timeouts, passed down as a dependency,
// and closed on shutdown; no package-level handle exists anywhere.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/lib/pq"

	"fleetdocs/internal/platform/config"
)

//go:embed schema.sql
var schema string

// Open connects to PostgreSQL with bounded connect timeout and pool limits.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

// ApplySchema creates tables when they do not exist yet. Used by dev setups
// and integration tests; production schema management stays external.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Health checks connectivity within the caller's deadline.
func Health(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}
