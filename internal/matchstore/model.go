// Package matchstore persists ranked match results. The upserter
// guarantees at most one record per (subject, target, target type)
// pair: re-running the pipeline updates existing records in place.
package matchstore

import "time"

// TargetTypePerson is the only target type the matcher currently
// produces. The column exists so other pairing kinds (circles, sits)
// can share the table later.
const TargetTypePerson = "person"

// Match status values.
const (
	StatusSuggested = "suggested"
	StatusContacted = "contacted"
	StatusArchived  = "archived"
)

// Record is one persisted (subject, target) match result.
type Record struct {
	ID         string
	SubjectID  string
	TargetID   string
	TargetType string

	// TotalScore is the 0-100 weighted total from the latest run.
	TotalScore int

	// SubScores holds the 0-100 per-dimension scores, keyed by
	// dimension name.
	SubScores map[string]int

	// TimingReadiness is the display-only 0-100 contact-readiness
	// signal from the latest run.
	TimingReadiness int

	SharedValues         []string
	SharedPractices      []string
	SharedIntentions     []string
	ComplementarySkills  []string
	SharedFocusAreas     []string
	SupportMatches       []string
	Rationale            string
	ConversationStarters []string

	Status string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key identifies a record's unique (subject, target, type) triple.
func (r *Record) Key() string {
	return r.SubjectID + "|" + r.TargetID + "|" + r.TargetType
}
