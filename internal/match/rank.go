package match

import (
	"math"
	"sort"
	"time"

	"github.com/sanghalabs/kindred/internal/profile"
)

// Pool and result caps. They bound resource use per run; correctness
// does not depend on them.
const (
	DefaultPoolLimit   = 1000
	DefaultResultLimit = 200
)

// ScoredCandidate is the transient result of scoring one candidate
// against the subject. It lives for the duration of one run; the
// persisted form is matchstore.Record.
type ScoredCandidate struct {
	Profile *profile.Profile

	// TotalScore is the weighted sum of sub-scores scaled to 0-100.
	TotalScore int

	// SubScores holds each dimension's 0-100 integer sub-score.
	SubScores map[string]int

	// TimingReadiness is the display-only 0-100 contact-readiness
	// signal; it does not contribute to TotalScore.
	TimingReadiness int

	// Explanation fields, filled by Explain.
	SharedValues         []string
	SharedPractices      []string
	SharedIntentions     []string
	ComplementarySkills  []string
	SharedFocusAreas     []string
	SupportMatches       []string
	Rationale            string
	ConversationStarters []string
}

// Rank scores every eligible candidate in the pool against the subject
// and returns the top candidates by total score, best first.
//
// Eligibility excludes the subject itself, non-public profiles, and
// blocklisted IDs, even if the pool was pre-filtered upstream. The sort
// is stable, so candidates with equal scores keep their pool order
// (the pool arrives ordered by trust score descending). The result is
// deterministic for a fixed (subject, pool, weights) input and never
// contains the same target twice.
func Rank(subject *profile.Profile, pool []*profile.Profile, weights WeightVector, blocked []string, now time.Time, limit int) []*ScoredCandidate {
	if limit <= 0 {
		limit = DefaultResultLimit
	}

	blockedSet := make(map[string]struct{}, len(blocked))
	for _, id := range blocked {
		blockedSet[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(pool))
	scored := make([]*ScoredCandidate, 0, len(pool))
	for _, candidate := range pool {
		if candidate.ID == subject.ID || !candidate.IsPublic() {
			continue
		}
		if _, excluded := blockedSet[candidate.ID]; excluded {
			continue
		}
		if _, dup := seen[candidate.ID]; dup {
			continue
		}
		seen[candidate.ID] = struct{}{}

		scored = append(scored, scoreCandidate(subject, candidate, weights, now))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].TotalScore > scored[j].TotalScore
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// scoreCandidate computes sub-scores and the weighted total for one
// candidate.
func scoreCandidate(subject, candidate *profile.Profile, weights WeightVector, now time.Time) *ScoredCandidate {
	raw := ScoreDimensions(subject, candidate)

	var total float64
	subScores := make(map[string]int, len(raw))
	for dim, score := range raw {
		total += score * weights[dim]
		subScores[dim] = int(math.Round(score * 100))
	}
	if total < 0.0 {
		total = 0.0
	}
	if total > 1.0 {
		total = 1.0
	}

	return &ScoredCandidate{
		Profile:         candidate,
		TotalScore:      int(math.Round(total * 100)),
		SubScores:       subScores,
		TimingReadiness: TimingReadiness(candidate, now),
	}
}
