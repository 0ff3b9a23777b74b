// Package db provides database connection handling for Kindred.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Postgres driver, registered as "postgres".
	_ "github.com/lib/pq"
)

// Connection pool defaults. The matcher's workload is bursty (one heavy
// read pass per run), so the pool stays modest.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute

	pingTimeout = 5 * time.Second
)

// ErrEmptyDatabaseURL is returned when Open is called without a URL.
var ErrEmptyDatabaseURL = errors.New("database URL is empty")

// Open connects to Postgres, applies pool settings, and verifies the
// connection with a ping.
func Open(databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, ErrEmptyDatabaseURL
	}

	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(DefaultMaxOpenConns)
	conn.SetMaxIdleConns(DefaultMaxIdleConns)
	conn.SetConnMaxLifetime(DefaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}
