package match

import (
	"fmt"
	"strings"

	"github.com/sanghalabs/kindred/internal/profile"
	"github.com/sanghalabs/kindred/internal/similarity"
)

// Limits on how many items each explanation list surfaces.
const (
	maxSharedValues        = 3
	maxSharedPractices     = 3
	maxSharedIntentions    = 2
	maxComplementarySkills = 2
	maxSharedFocusAreas    = 2
	maxSupportMatches      = 2
)

// genericStarter is the fallback when no overlap-specific starter
// applies.
const genericStarter = "Ask what brought them to their practice."

// Explain fills the explanation fields of a scored candidate: the
// shared/complementary attribute lists, an ordered list of conversation
// starters, and a rationale string summarizing the dimension scores.
func Explain(subject *profile.Profile, sc *ScoredCandidate) {
	candidate := sc.Profile

	sc.SharedValues = similarity.Shared(subject.Values, candidate.Values, maxSharedValues)
	sc.SharedPractices = similarity.Shared(subject.Practices, candidate.Practices, maxSharedPractices)
	sc.SharedIntentions = similarity.Shared(subject.Intentions, candidate.Intentions, maxSharedIntentions)
	sc.ComplementarySkills = similarity.Shared(candidate.Skills, subject.SeekingSkills, maxComplementarySkills)
	sc.SharedFocusAreas = similarity.Shared(subject.FocusAreas, candidate.FocusAreas, maxSharedFocusAreas)
	sc.SupportMatches = similarity.Shared(subject.SeekingSupport, candidate.OfferingSupport, maxSupportMatches)

	sc.ConversationStarters = buildStarters(sc)
	sc.Rationale = buildRationale(sc)
}

// buildStarters generates conversation starters from fixed templates,
// one per non-empty overlap list, falling back to a single generic
// starter when nothing overlaps.
func buildStarters(sc *ScoredCandidate) []string {
	var starters []string

	if len(sc.SharedValues) > 0 {
		starters = append(starters,
			fmt.Sprintf("You both hold %s as a core value. Ask what it means to them.", sc.SharedValues[0]))
	}
	if len(sc.SharedPractices) > 0 {
		starters = append(starters,
			fmt.Sprintf("Compare notes on your %s practice.", sc.SharedPractices[0]))
	}
	if len(sc.ComplementarySkills) > 0 {
		starters = append(starters,
			fmt.Sprintf("They have experience with %s, which you want to grow in.", sc.ComplementarySkills[0]))
	}
	if len(sc.SharedFocusAreas) > 0 {
		starters = append(starters,
			fmt.Sprintf("You are both focusing on %s right now.", sc.SharedFocusAreas[0]))
	}
	if len(sc.SupportMatches) > 0 {
		starters = append(starters,
			fmt.Sprintf("They can offer support with %s.", sc.SupportMatches[0]))
	}
	if len(sc.SharedIntentions) > 0 {
		starters = append(starters,
			fmt.Sprintf("You share the intention of %s.", sc.SharedIntentions[0]))
	}

	if len(starters) == 0 {
		starters = append(starters, genericStarter)
	}
	return starters
}

// insightThresholds gates the qualitative sentences appended to the
// rationale. Thresholds are on the 0-100 integer sub-scores; a
// sentence is included only when its sub-score is strictly above the
// threshold.
var insightThresholds = []struct {
	dimension string
	above     int
	sentence  string
}{
	{DimCommunication, 70, "Excellent communication compatibility."},
	{DimValues, 50, "Strong alignment on core values."},
	{DimSpiritualDepth, 70, "Deeply compatible practice lives."},
	{DimSkills, 60, "Complementary skills and learning goals."},
	{DimGoals, 60, "Working toward similar goals."},
	{DimRegion, 99, "Based in the same region."},
}

// buildRationale lists every dimension percentage in canonical order,
// then appends the qualitative insights whose thresholds the sub-scores
// cross.
func buildRationale(sc *ScoredCandidate) string {
	parts := make([]string, 0, len(Dimensions))
	for _, dim := range Dimensions {
		parts = append(parts, fmt.Sprintf("%s %d%%", dim, sc.SubScores[dim]))
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(".")

	for _, insight := range insightThresholds {
		if sc.SubScores[insight.dimension] > insight.above {
			b.WriteString(" ")
			b.WriteString(insight.sentence)
		}
	}
	return b.String()
}
