// Package feedback provides storage for past-pairing satisfaction
// records. The adaptive weight controller reads a subject's recent
// feedback; the reputation job reads feedback received by a member.
package feedback

import "time"

// Rating bounds for a satisfaction rating.
const (
	MinRating     = 1
	MaxRating     = 5
	NeutralRating = 3
)

// DefaultHistoryWindow is the number of most-recent records the
// adaptive weight controller considers.
const DefaultHistoryWindow = 300

// Record is one past (subject, target) pairing with the sub-scores
// computed at the time and the subject's satisfaction rating.
type Record struct {
	ID        string
	SubjectID string
	TargetID  string

	// Rating is 1-5; 0 means the subject never rated the pairing.
	// Unrated records are excluded from weight adaptation.
	Rating int

	// SubScores holds the per-dimension 0-100 integers that produced
	// the pairing, keyed by dimension name.
	SubScores map[string]int

	CreatedAt time.Time
}

// Rated reports whether the record carries a usable rating.
func (r Record) Rated() bool {
	return r.Rating >= MinRating && r.Rating <= MaxRating
}

// SubScore returns the stored sub-score for a dimension, or 0 when the
// dimension was not recorded.
func (r Record) SubScore(dimension string) int {
	return r.SubScores[dimension]
}
