package matchstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sanghalabs/kindred/internal/tracing"
)

// PostgresStore implements Store using PostgreSQL with full transaction
// support. The lookup-then-write runs inside a transaction and the
// table carries a unique index on (subject_id, target_id, target_type),
// so the at-most-one invariant holds even under concurrent writers the
// in-process logic cannot see.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres-backed match store.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// Upsert writes a ranked result, updating the existing record for the
// (subject, target, type) triple in place or creating a new one.
func (s *PostgresStore) Upsert(ctx context.Context, record *Record) (bool, error) {
	if record.TargetType == "" {
		record.TargetType = TargetTypePerson
	}

	subScores, err := json.Marshal(record.SubScores)
	if err != nil {
		return false, fmt.Errorf("failed to encode sub-scores: %w", err)
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "match_records", tracing.DBOperationExec)
	created, err := s.upsertTx(ctx, record, subScores)
	endSpan(err)
	return created, err
}

func (s *PostgresStore) upsertTx(ctx context.Context, record *Record, subScores []byte) (bool, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// No-op after a successful commit.
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			s.logger.Warn("failed to rollback match upsert", "error", err)
		}
	}()

	// Lock the existing row for the pair, if any, serializing
	// concurrent upserts for the same triple.
	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM match_records
		 WHERE subject_id = $1 AND target_id = $2 AND target_type = $3
		 FOR UPDATE`,
		record.SubjectID, record.TargetID, record.TargetType).Scan(&existingID)

	switch {
	case err == sql.ErrNoRows:
		id := record.ID
		if id == "" {
			id = uuid.NewString()
		}
		status := record.Status
		if status == "" {
			status = StatusSuggested
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO match_records (
				id, subject_id, target_id, target_type,
				total_score, sub_scores, timing_readiness,
				shared_values, shared_practices, shared_intentions,
				complementary_skills, shared_focus_areas, support_matches,
				rationale, conversation_starters, status,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW(),NOW())`,
			id, record.SubjectID, record.TargetID, record.TargetType,
			record.TotalScore, subScores, record.TimingReadiness,
			pq.Array(record.SharedValues), pq.Array(record.SharedPractices), pq.Array(record.SharedIntentions),
			pq.Array(record.ComplementarySkills), pq.Array(record.SharedFocusAreas), pq.Array(record.SupportMatches),
			record.Rationale, pq.Array(record.ConversationStarters), status)
		if err != nil {
			return false, fmt.Errorf("failed to insert match record: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit match insert: %w", err)
		}
		record.ID = id
		return true, nil

	case err != nil:
		return false, fmt.Errorf("failed to look up match record: %w", err)
	}

	// Update in place; created_at and status are preserved.
	_, err = tx.ExecContext(ctx,
		`UPDATE match_records SET
			total_score = $1, sub_scores = $2, timing_readiness = $3,
			shared_values = $4, shared_practices = $5, shared_intentions = $6,
			complementary_skills = $7, shared_focus_areas = $8, support_matches = $9,
			rationale = $10, conversation_starters = $11,
			updated_at = NOW()
		 WHERE id = $12`,
		record.TotalScore, subScores, record.TimingReadiness,
		pq.Array(record.SharedValues), pq.Array(record.SharedPractices), pq.Array(record.SharedIntentions),
		pq.Array(record.ComplementarySkills), pq.Array(record.SharedFocusAreas), pq.Array(record.SupportMatches),
		record.Rationale, pq.Array(record.ConversationStarters),
		existingID)
	if err != nil {
		return false, fmt.Errorf("failed to update match record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit match update: %w", err)
	}
	record.ID = existingID
	return false, nil
}

// ListBySubject returns the subject's matches, best score first.
func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string, limit int) ([]*Record, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "match_records", tracing.DBOperationQuery)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject_id, target_id, target_type,
			total_score, sub_scores, timing_readiness,
			shared_values, shared_practices, shared_intentions,
			complementary_skills, shared_focus_areas, support_matches,
			rationale, conversation_starters, status,
			created_at, updated_at
		 FROM match_records
		 WHERE subject_id = $1
		 ORDER BY total_score DESC, target_id ASC
		 LIMIT $2`,
		subjectID, limit)
	if err != nil {
		endSpan(err)
		return nil, fmt.Errorf("failed to query match records: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close match record rows", "error", err)
		}
	}()

	var out []*Record
	for rows.Next() {
		var r Record
		var subScores []byte
		if err := rows.Scan(
			&r.ID, &r.SubjectID, &r.TargetID, &r.TargetType,
			&r.TotalScore, &subScores, &r.TimingReadiness,
			pq.Array(&r.SharedValues), pq.Array(&r.SharedPractices), pq.Array(&r.SharedIntentions),
			pq.Array(&r.ComplementarySkills), pq.Array(&r.SharedFocusAreas), pq.Array(&r.SupportMatches),
			&r.Rationale, pq.Array(&r.ConversationStarters), &r.Status,
			&r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			endSpan(err)
			return nil, fmt.Errorf("failed to scan match record: %w", err)
		}
		if len(subScores) > 0 {
			if err := json.Unmarshal(subScores, &r.SubScores); err != nil {
				endSpan(err)
				return nil, fmt.Errorf("failed to decode sub-scores for %s: %w", r.ID, err)
			}
		}
		out = append(out, &r)
	}
	err = rows.Err()
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate match records: %w", err)
	}
	return out, nil
}
