package profile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/sanghalabs/kindred/internal/tracing"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres-backed profile store.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

const profileColumns = `
	id, display_name, visibility,
	values_tags, practices, skills, intentions,
	seeking_skills, offering_skills, connection_types,
	qualities_sought, qualities_offered,
	focus_areas, short_term_goals, seeking_support, offering_support,
	teachers, texts,
	communication_style, depth_preference, feedback_style, conflict_approach,
	practice_frequency, practice_depth, lineage, archetype,
	region, trust_score, online, last_active_at, created_at, updated_at`

// GetByID retrieves a profile by member ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Profile, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationQuery)

	query := `SELECT` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(s.db.QueryRowContext(ctx, query, id))
	endSpan(err)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", id, err)
	}
	return p, nil
}

// ListCandidates returns public profiles other than excludeID, ordered
// by trust score descending, capped at limit.
func (s *PostgresStore) ListCandidates(ctx context.Context, excludeID string, limit int) ([]*Profile, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationQuery)

	query := `SELECT` + profileColumns + `
		FROM profiles
		WHERE id <> $1 AND visibility = $2
		ORDER BY trust_score DESC, id ASC
		LIMIT $3`
	rows, err := s.db.QueryContext(ctx, query, excludeID, VisibilityPublic, limit)
	if err != nil {
		endSpan(err)
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close candidate rows", "error", err)
		}
	}()

	var out []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			endSpan(err)
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, p)
	}
	err = rows.Err()
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return out, nil
}

// UpdateTrustScore persists a recomputed trust score for a member.
func (s *PostgresStore) UpdateTrustScore(ctx context.Context, id string, score float64) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationUpdate)

	result, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET trust_score = $1, updated_at = NOW() WHERE id = $2`,
		score, id)
	if err != nil {
		endSpan(err)
		return fmt.Errorf("failed to update trust score for %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	endSpan(err)
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanProfile.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var lastActive, createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.DisplayName, &p.Visibility,
		pq.Array(&p.Values), pq.Array(&p.Practices), pq.Array(&p.Skills), pq.Array(&p.Intentions),
		pq.Array(&p.SeekingSkills), pq.Array(&p.OfferingSkills), pq.Array(&p.ConnectionTypes),
		pq.Array(&p.QualitiesSought), pq.Array(&p.QualitiesOffered),
		pq.Array(&p.FocusAreas), pq.Array(&p.ShortTermGoals), pq.Array(&p.SeekingSupport), pq.Array(&p.OfferingSupport),
		pq.Array(&p.Teachers), pq.Array(&p.Texts),
		&p.CommunicationStyle, &p.DepthPreference, &p.FeedbackStyle, &p.ConflictApproach,
		&p.PracticeFrequency, &p.PracticeDepth, &p.Lineage, &p.Archetype,
		&p.Region, &p.TrustScore, &p.Online, &lastActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastActive.Valid {
		p.LastActiveAt = lastActive.Time
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return &p, nil
}
