package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sanghalabs/kindred/internal/match"
	"github.com/sanghalabs/kindred/internal/matchstore"
	"github.com/sanghalabs/kindred/internal/middleware"
)

// MatchRunner runs the full match pipeline for one subject.
type MatchRunner interface {
	Run(ctx context.Context, subjectID string) (*match.Summary, error)
}

// MatchLister reads back persisted match records for a subject.
type MatchLister interface {
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]*matchstore.Record, error)
}

// MatchHandlers holds dependencies for the match HTTP endpoints.
type MatchHandlers struct {
	runner    MatchRunner
	matches   MatchLister
	listLimit int
}

// NewMatchHandlers creates a new MatchHandlers instance. listLimit caps
// how many records GET /v1/matches returns; zero means the ranking
// result limit.
func NewMatchHandlers(runner MatchRunner, matches MatchLister, listLimit int) *MatchHandlers {
	if listLimit <= 0 {
		listLimit = match.DefaultResultLimit
	}
	return &MatchHandlers{
		runner:    runner,
		matches:   matches,
		listLimit: listLimit,
	}
}

// RunMatches handles POST /v1/matches/run. The authenticated member is
// the subject; the response is the run summary.
func (h *MatchHandlers) RunMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	subjectID := middleware.GetMemberID(r.Context())

	summary, err := h.runner.Run(r.Context(), subjectID)
	if err != nil {
		switch {
		case errors.Is(err, match.ErrUnauthenticated):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		case errors.Is(err, match.ErrMissingProfile):
			slog.DebugContext(r.Context(), "match run without profile", "subject_id", subjectID)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeMissingProfile)
			WriteError(w, ctx, http.StatusPreconditionFailed, ErrCodeMissingProfile, "Create a profile before requesting matches")
		default:
			slog.ErrorContext(r.Context(), "match run failed", "error", err, "subject_id", subjectID)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to run match")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode match run response", "error", err)
	}
}

// MatchRecordResponse is the JSON shape of one persisted match record.
type MatchRecordResponse struct {
	ID                   string         `json:"id"`
	TargetID             string         `json:"target_id"`
	TargetType           string         `json:"target_type"`
	TotalScore           int            `json:"total_score"`
	SubScores            map[string]int `json:"sub_scores"`
	TimingReadiness      int            `json:"timing_readiness"`
	SharedValues         []string       `json:"shared_values,omitempty"`
	SharedPractices      []string       `json:"shared_practices,omitempty"`
	SharedIntentions     []string       `json:"shared_intentions,omitempty"`
	ComplementarySkills  []string       `json:"complementary_skills,omitempty"`
	SharedFocusAreas     []string       `json:"shared_focus_areas,omitempty"`
	SupportMatches       []string       `json:"support_matches,omitempty"`
	Rationale            string         `json:"rationale"`
	ConversationStarters []string       `json:"conversation_starters,omitempty"`
	Status               string         `json:"status"`
	CreatedAt            string         `json:"created_at"`
	UpdatedAt            string         `json:"updated_at"`
}

// MatchListResponse wraps the match list for GET /v1/matches.
type MatchListResponse struct {
	Matches []MatchRecordResponse `json:"matches"`
	Count   int                   `json:"count"`
}

// ListMatches handles GET /v1/matches. Records come back in rank order
// (highest total score first), as persisted by the latest run.
func (h *MatchHandlers) ListMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	subjectID := middleware.GetMemberID(r.Context())
	if subjectID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	records, err := h.matches.ListBySubject(r.Context(), subjectID, h.listLimit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list matches", "error", err, "subject_id", subjectID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list matches")
		return
	}

	response := MatchListResponse{
		Matches: make([]MatchRecordResponse, 0, len(records)),
		Count:   len(records),
	}
	for _, rec := range records {
		response.Matches = append(response.Matches, toMatchRecordResponse(rec))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode match list response", "error", err)
	}
}

func toMatchRecordResponse(rec *matchstore.Record) MatchRecordResponse {
	return MatchRecordResponse{
		ID:                   rec.ID,
		TargetID:             rec.TargetID,
		TargetType:           rec.TargetType,
		TotalScore:           rec.TotalScore,
		SubScores:            rec.SubScores,
		TimingReadiness:      rec.TimingReadiness,
		SharedValues:         rec.SharedValues,
		SharedPractices:      rec.SharedPractices,
		SharedIntentions:     rec.SharedIntentions,
		ComplementarySkills:  rec.ComplementarySkills,
		SharedFocusAreas:     rec.SharedFocusAreas,
		SupportMatches:       rec.SupportMatches,
		Rationale:            rec.Rationale,
		ConversationStarters: rec.ConversationStarters,
		Status:               rec.Status,
		CreatedAt:            rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
