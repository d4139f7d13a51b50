package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq" // PostgreSQL driver
)

const (
	defaultMaxOpenConns    = 5
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute

	// undefinedTable is the Postgres SQLSTATE for a missing relation.
	undefinedTable = "42P01"
)

// ErrSchemaMissing means the tables have not been created.
var ErrSchemaMissing = errors.New("database schema missing, run EnsureSchema first")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS dashboard_state (
    id         VARCHAR(64) PRIMARY KEY,
    state      JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reminder_markers (
    marker_key VARCHAR(255) NOT NULL,
    scope      VARCHAR(16)  NOT NULL,
    fired_at   TIMESTAMPTZ  NOT NULL,
    PRIMARY KEY (scope, marker_key)
);

CREATE INDEX IF NOT EXISTS reminder_markers_fired_at_idx ON reminder_markers (scope, fired_at);
`

// NewPostgresConnection opens a small pool and pings the database. The reminder
// engine issues a handful of queries per tick, so the pool stays small.
func NewPostgresConnection(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the tables used by the bot when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// translateError maps driver errors onto the package's sentinel errors.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pqErr.Message)
	}
	return err
}
