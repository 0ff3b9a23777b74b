package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sanghalabs/kindred/internal/blocklist"
	"github.com/sanghalabs/kindred/internal/feedback"
	"github.com/sanghalabs/kindred/internal/matchstore"
	"github.com/sanghalabs/kindred/internal/profile"
	"github.com/sanghalabs/kindred/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Terminal error classes for a match run. Collaborator failures on the
// blocklist and feedback stores are soft and never surface here; the
// run proceeds with an empty blocklist or unadapted weights instead.
var (
	// ErrUnauthenticated is returned when no subject identity could be
	// resolved for the run.
	ErrUnauthenticated = errors.New("no authenticated subject")

	// ErrMissingProfile is returned when the subject has no profile
	// record.
	ErrMissingProfile = errors.New("subject has no profile")
)

// jobTypeMatchRun labels match runs in the centralized job metrics.
const jobTypeMatchRun = "match_run"

// JobMetrics reports run outcomes to the centralized background-job
// metrics system.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// ServiceConfig configures the match service.
type ServiceConfig struct {
	// PoolLimit caps how many candidates are fetched. Zero means
	// DefaultPoolLimit.
	PoolLimit int
	// ResultLimit caps how many ranked matches are kept and persisted.
	// Zero means DefaultResultLimit.
	ResultLimit int
	// HistoryWindow caps how many recent feedback records feed weight
	// adaptation. Zero means feedback.DefaultHistoryWindow.
	HistoryWindow int
	// BaseWeights is the (possibly calibrated) starting weight vector.
	// Nil means BaseWeights().
	BaseWeights WeightVector
	// Logger for run activity.
	Logger *slog.Logger
	// JobMetrics for centralized job tracking. Optional.
	JobMetrics JobMetrics
	// Now supplies the current time; defaults to time.Now. Tests
	// override it to pin timing-readiness output.
	Now func() time.Time
}

// Summary is the terminal output of one match run.
type Summary struct {
	Success bool         `json:"success"`
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Ranked  int          `json:"ranked"`
	Weights WeightVector `json:"weights"`
}

// Service orchestrates one full match run: read everything, adapt
// weights, score and rank, synthesize explanations, upsert results.
type Service struct {
	config    ServiceConfig
	profiles  profile.Store
	feedback  feedback.Store
	blocklist blocklist.Store
	matches   matchstore.Store
}

// NewService creates a match service.
func NewService(
	config ServiceConfig,
	profiles profile.Store,
	feedbackStore feedback.Store,
	blocklistStore blocklist.Store,
	matches matchstore.Store,
) *Service {
	if config.PoolLimit <= 0 {
		config.PoolLimit = DefaultPoolLimit
	}
	if config.ResultLimit <= 0 {
		config.ResultLimit = DefaultResultLimit
	}
	if config.HistoryWindow <= 0 {
		config.HistoryWindow = feedback.DefaultHistoryWindow
	}
	if config.BaseWeights == nil {
		config.BaseWeights = BaseWeights()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Service{
		config:    config,
		profiles:  profiles,
		feedback:  feedbackStore,
		blocklist: blocklistStore,
		matches:   matches,
	}
}

// Run executes the full pipeline for one subject. Safe to re-run: the
// upsert pass updates existing records rather than duplicating them.
func (s *Service) Run(ctx context.Context, subjectID string) (*Summary, error) {
	start := s.config.Now()

	ctx, endRun := tracing.StartRunSpan(ctx, subjectID)
	summary, err := s.run(ctx, subjectID)
	endRun(err)

	duration := s.config.Now().Sub(start).Seconds()
	status := "success"
	if err != nil {
		status = "failure"
	}
	if s.config.JobMetrics != nil {
		s.config.JobMetrics.IncJobsTotal(jobTypeMatchRun, status)
		s.config.JobMetrics.ObserveJobDuration(jobTypeMatchRun, duration)
	}
	return summary, err
}

func (s *Service) run(ctx context.Context, subjectID string) (*Summary, error) {
	if subjectID == "" {
		return nil, ErrUnauthenticated
	}

	subject, err := s.profiles.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, ErrMissingProfile
		}
		return nil, fmt.Errorf("failed to load subject profile: %w", err)
	}

	// Soft reads: a blocklist or feedback outage degrades the run
	// rather than aborting it.
	blocked, err := s.blocklist.ListBlocked(ctx, subjectID)
	if err != nil {
		s.config.Logger.Warn("blocklist unavailable, proceeding without exclusions",
			"subject_id", subjectID,
			"error", err)
		if s.config.JobMetrics != nil {
			s.config.JobMetrics.IncJobErrors(jobTypeMatchRun, "blocklist_unavailable")
		}
		blocked = nil
	}

	history, err := s.feedback.ListBySubject(ctx, subjectID, s.config.HistoryWindow)
	if err != nil {
		s.config.Logger.Warn("feedback history unavailable, skipping weight adaptation",
			"subject_id", subjectID,
			"error", err)
		if s.config.JobMetrics != nil {
			s.config.JobMetrics.IncJobErrors(jobTypeMatchRun, "feedback_unavailable")
		}
		history = nil
	}

	pool, err := s.profiles.ListCandidates(ctx, subjectID, s.config.PoolLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate pool: %w", err)
	}

	weights := AdaptWeights(s.config.BaseWeights, history)
	now := s.config.Now()
	ranked := Rank(subject, pool, weights, blocked, now, s.config.ResultLimit)
	tracing.AddEvent(ctx, "candidates_ranked",
		attribute.Int("pool_size", len(pool)),
		attribute.Int("ranked", len(ranked)),
	)

	stats := matchstore.NewUpsertStats()
	for _, sc := range ranked {
		Explain(subject, sc)

		created, err := s.matches.Upsert(ctx, toRecord(subjectID, sc))
		if err != nil {
			return nil, fmt.Errorf("failed to upsert match for target %s: %w", sc.Profile.ID, err)
		}
		if created {
			stats.RecordCreate()
		} else {
			stats.RecordUpdate()
		}
	}

	stats.LogSummary(s.config.Logger, subjectID)
	s.config.Logger.Info("match run completed",
		"subject_id", subjectID,
		"pool_size", len(pool),
		"ranked", len(ranked),
		"rated_history", len(history),
		"blocked", len(blocked))

	return &Summary{
		Success: true,
		Created: int(stats.Created()),
		Updated: int(stats.Updated()),
		Ranked:  len(ranked),
		Weights: weights,
	}, nil
}

// toRecord converts a scored candidate into its persisted form.
func toRecord(subjectID string, sc *ScoredCandidate) *matchstore.Record {
	return &matchstore.Record{
		SubjectID:            subjectID,
		TargetID:             sc.Profile.ID,
		TargetType:           matchstore.TargetTypePerson,
		TotalScore:           sc.TotalScore,
		SubScores:            sc.SubScores,
		TimingReadiness:      sc.TimingReadiness,
		SharedValues:         sc.SharedValues,
		SharedPractices:      sc.SharedPractices,
		SharedIntentions:     sc.SharedIntentions,
		ComplementarySkills:  sc.ComplementarySkills,
		SharedFocusAreas:     sc.SharedFocusAreas,
		SupportMatches:       sc.SupportMatches,
		Rationale:            sc.Rationale,
		ConversationStarters: sc.ConversationStarters,
		Status:               matchstore.StatusSuggested,
	}
}
