package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const connectTimeout = 5 * time.Second

// DB wraps the postgres connection pool.
type DB struct {
	*sql.DB
}

// New opens a postgres connection and verifies it with a ping.
func New(databaseURL string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{DB: sqlDB}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS cors_config (
	config_key        TEXT PRIMARY KEY,
	allowed_methods   TEXT NOT NULL DEFAULT '',
	allowed_headers   TEXT NOT NULL DEFAULT '',
	exposed_headers   TEXT NOT NULL DEFAULT '',
	allow_credentials BOOLEAN NOT NULL DEFAULT FALSE,
	max_age           INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS cors_origins (
	origin     TEXT PRIMARY KEY,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the policy tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}
