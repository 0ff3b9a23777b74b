package blocklist

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/sanghalabs/kindred/internal/tracing"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres-backed blocklist store.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// ListBlocked returns the member IDs the subject has excluded.
func (s *PostgresStore) ListBlocked(ctx context.Context, subjectID string) ([]string, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "blocklists", tracing.DBOperationQuery)

	rows, err := s.db.QueryContext(ctx,
		`SELECT target_id FROM blocklists WHERE subject_id = $1`, subjectID)
	if err != nil {
		endSpan(err)
		return nil, fmt.Errorf("failed to query blocklist: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close blocklist rows", "error", err)
		}
	}()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			endSpan(err)
			return nil, fmt.Errorf("failed to scan blocklist entry: %w", err)
		}
		out = append(out, id)
	}
	err = rows.Err()
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate blocklist: %w", err)
	}
	return out, nil
}
