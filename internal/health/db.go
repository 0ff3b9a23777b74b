// Package health implements the dependency probes behind the readiness
// endpoints. Each checker wraps one external dependency and reports
// through a single HealthCheck method, so handlers can treat them
// uniformly.
package health

import (
	"context"
	"database/sql"
)

// DBChecker probes the Postgres connection pool.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker creates a database health checker.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck pings the database, honoring the context deadline.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}
