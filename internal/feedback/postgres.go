package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sanghalabs/kindred/internal/tracing"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres-backed feedback store.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// ListBySubject returns the subject's most recent records, newest first.
func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string, limit int) ([]Record, error) {
	return s.list(ctx,
		`SELECT id, subject_id, target_id, rating, sub_scores, created_at
		 FROM match_feedback
		 WHERE subject_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		subjectID, limit)
}

// ListByTarget returns rated records received by the target, newest first.
func (s *PostgresStore) ListByTarget(ctx context.Context, targetID string, limit int) ([]Record, error) {
	return s.list(ctx,
		`SELECT id, subject_id, target_id, rating, sub_scores, created_at
		 FROM match_feedback
		 WHERE target_id = $1 AND rating BETWEEN 1 AND 5
		 ORDER BY created_at DESC
		 LIMIT $2`,
		targetID, limit)
}

// TargetsRatedSince returns distinct target IDs rated at or after since.
func (s *PostgresStore) TargetsRatedSince(ctx context.Context, since time.Time) ([]string, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "match_feedback", tracing.DBOperationQuery)

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT target_id
		 FROM match_feedback
		 WHERE rating BETWEEN 1 AND 5 AND created_at >= $1
		 ORDER BY target_id`,
		since)
	if err != nil {
		endSpan(err)
		return nil, fmt.Errorf("failed to query rated targets: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close rated-target rows", "error", err)
		}
	}()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			endSpan(err)
			return nil, fmt.Errorf("failed to scan target id: %w", err)
		}
		out = append(out, id)
	}
	err = rows.Err()
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rated targets: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any, limit int) ([]Record, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "match_feedback", tracing.DBOperationQuery)

	rows, err := s.db.QueryContext(ctx, query, arg, limit)
	if err != nil {
		endSpan(err)
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close feedback rows", "error", err)
		}
	}()

	var out []Record
	for rows.Next() {
		var r Record
		var rating sql.NullInt64
		var subScores []byte
		if err := rows.Scan(&r.ID, &r.SubjectID, &r.TargetID, &rating, &subScores, &r.CreatedAt); err != nil {
			endSpan(err)
			return nil, fmt.Errorf("failed to scan feedback record: %w", err)
		}
		if rating.Valid {
			r.Rating = int(rating.Int64)
		}
		if len(subScores) > 0 {
			if err := json.Unmarshal(subScores, &r.SubScores); err != nil {
				// A malformed sub-score blob degrades that record to
				// rating-only rather than failing the whole read.
				s.logger.Warn("failed to decode feedback sub-scores",
					"feedback_id", r.ID,
					"error", err)
			}
		}
		out = append(out, r)
	}
	err = rows.Err()
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}
	return out, nil
}
