package match

import (
	"strings"
	"time"

	"github.com/sanghalabs/kindred/internal/compat"
	"github.com/sanghalabs/kindred/internal/profile"
	"github.com/sanghalabs/kindred/internal/similarity"
)

// Dimension names. These are the keys of weight vectors, sub-score maps,
// and persisted feedback sub-scores, so they must stay stable.
const (
	DimValues         = "values"
	DimPractices      = "practices"
	DimSkills         = "skills"
	DimIntentions     = "intentions"
	DimRelationship   = "relationship"
	DimCommunication  = "communication"
	DimGoals          = "goals"
	DimSpiritualDepth = "spiritual_depth"
	DimRegion         = "region"
	DimReputation     = "reputation"
)

// Dimensions lists the ten weighted dimensions in canonical order.
var Dimensions = []string{
	DimValues,
	DimPractices,
	DimSkills,
	DimIntentions,
	DimRelationship,
	DimCommunication,
	DimGoals,
	DimSpiritualDepth,
	DimRegion,
	DimReputation,
}

// ScoreDimensions computes all ten dimension sub-scores for the
// (subject, candidate) pair. Every score is in [0, 1]; a dimension whose
// required attributes are absent scores 0 rather than erroring.
func ScoreDimensions(subject, candidate *profile.Profile) map[string]float64 {
	return map[string]float64{
		DimValues:         similarity.Jaccard(subject.Values, candidate.Values),
		DimPractices:      similarity.Jaccard(subject.Practices, candidate.Practices),
		DimSkills:         scoreSkills(subject, candidate),
		DimIntentions:     similarity.Jaccard(subject.Intentions, candidate.Intentions),
		DimRelationship:   scoreRelationship(subject, candidate),
		DimCommunication:  scoreCommunication(subject, candidate),
		DimGoals:          scoreGoals(subject, candidate),
		DimSpiritualDepth: scoreSpiritualDepth(subject, candidate),
		DimRegion:         scoreRegion(subject, candidate),
		DimReputation:     scoreReputation(candidate),
	}
}

// scoreSkills blends a directional "who needs what" match with plain
// skill overlap. The directional part weighs what the subject seeks
// against what the candidate has, and what the subject offers against
// what the candidate intends to pursue.
func scoreSkills(subject, candidate *profile.Profile) float64 {
	skillMatch := 0.7*similarity.Coverage(subject.SeekingSkills, candidate.Skills) +
		0.3*similarity.Coverage(subject.OfferingSkills, candidate.Intentions)
	return 0.6*skillMatch + 0.4*similarity.Jaccard(subject.Skills, candidate.Skills)
}

// scoreRelationship averages up to three sub-factors, each applied only
// when both sides supplied the relevant lists.
func scoreRelationship(subject, candidate *profile.Profile) float64 {
	var sum float64
	var n int

	if len(subject.ConnectionTypes) > 0 && len(candidate.ConnectionTypes) > 0 {
		sum += similarity.Jaccard(subject.ConnectionTypes, candidate.ConnectionTypes)
		n++
	}
	if len(subject.QualitiesSought) > 0 && len(candidate.QualitiesOffered) > 0 {
		sum += similarity.Coverage(subject.QualitiesSought, candidate.QualitiesOffered)
		n++
	}
	if len(candidate.QualitiesSought) > 0 && len(subject.QualitiesOffered) > 0 {
		sum += similarity.Coverage(candidate.QualitiesSought, subject.QualitiesOffered)
		n++
	}

	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// scoreCommunication averages up to four sub-factors, each gated on both
// sides having the attribute set. Values present on both sides but
// unknown to a table still count, at the table's neutral default.
func scoreCommunication(subject, candidate *profile.Profile) float64 {
	var sum float64
	var n int

	if subject.CommunicationStyle != nil && candidate.CommunicationStyle != nil {
		sum += compat.CommunicationStyles.Lookup(*subject.CommunicationStyle, *candidate.CommunicationStyle)
		n++
	}
	if subject.DepthPreference != nil && candidate.DepthPreference != nil {
		sum += compat.DepthPreferences.Lookup(*subject.DepthPreference, *candidate.DepthPreference)
		n++
	}
	if subject.FeedbackStyle != nil && candidate.FeedbackStyle != nil {
		if *subject.FeedbackStyle == *candidate.FeedbackStyle {
			sum += 1.0
		} else {
			sum += 0.6
		}
		n++
	}
	if subject.ConflictApproach != nil && candidate.ConflictApproach != nil {
		sum += compat.ConflictApproaches.Lookup(*subject.ConflictApproach, *candidate.ConflictApproach)
		n++
	}

	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// scoreGoals averages up to four gated sub-factors covering current
// focus, short-term goals, and the two directions of support exchange.
func scoreGoals(subject, candidate *profile.Profile) float64 {
	var sum float64
	var n int

	if len(subject.FocusAreas) > 0 && len(candidate.FocusAreas) > 0 {
		sum += similarity.Jaccard(subject.FocusAreas, candidate.FocusAreas)
		n++
	}
	if len(subject.ShortTermGoals) > 0 && len(candidate.ShortTermGoals) > 0 {
		sum += similarity.Jaccard(subject.ShortTermGoals, candidate.ShortTermGoals)
		n++
	}
	if len(subject.SeekingSupport) > 0 && len(candidate.OfferingSupport) > 0 {
		sum += similarity.Coverage(subject.SeekingSupport, candidate.OfferingSupport)
		n++
	}
	if len(candidate.SeekingSupport) > 0 && len(subject.OfferingSupport) > 0 {
		sum += similarity.Coverage(candidate.SeekingSupport, subject.OfferingSupport)
		n++
	}

	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// scoreSpiritualDepth averages up to six gated sub-factors: proximity on
// the two ordered practice scales, shared teachers/texts bonuses,
// lineage affinity, and archetype affinity.
func scoreSpiritualDepth(subject, candidate *profile.Profile) float64 {
	var sum float64
	var n int

	if subject.PracticeFrequency != nil && candidate.PracticeFrequency != nil {
		if d := profile.ScaleDistance(profile.PracticeFrequencies, *subject.PracticeFrequency, *candidate.PracticeFrequency); d >= 0 {
			switch {
			case d <= 1:
				sum += 1.0
			case d == 2:
				sum += 0.7
			default:
				sum += 0.4
			}
			n++
		}
	}
	if subject.PracticeDepth != nil && candidate.PracticeDepth != nil {
		if d := profile.ScaleDistance(profile.PracticeDepths, *subject.PracticeDepth, *candidate.PracticeDepth); d >= 0 {
			switch {
			case d <= 1:
				sum += 1.0
			case d == 2:
				sum += 0.8
			default:
				sum += 0.5
			}
			n++
		}
	}
	if j := similarity.Jaccard(subject.Teachers, candidate.Teachers); j > 0 {
		sum += 0.5 + 0.5*j
		n++
	}
	if j := similarity.Jaccard(subject.Texts, candidate.Texts); j > 0 {
		sum += 0.5 + 0.5*j
		n++
	}
	if score, ok := lineageAffinity(subject.Lineage, candidate.Lineage); ok {
		sum += score
		n++
	}
	if subject.Archetype != nil && candidate.Archetype != nil {
		sum += compat.Archetypes.Lookup(*subject.Archetype, *candidate.Archetype)
		n++
	}

	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// lineageAffinity scores lineage compatibility. The factor is excluded
// (ok=false) when either side left lineage unset or declined to share.
func lineageAffinity(a, b *string) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	la := strings.ToLower(strings.TrimSpace(*a))
	lb := strings.ToLower(strings.TrimSpace(*b))
	if la == profile.LineageUndeclared || lb == profile.LineageUndeclared {
		return 0, false
	}
	switch {
	case la == lb:
		return 1.0, true
	case la == profile.LineageEclectic || lb == profile.LineageEclectic:
		return 0.7, true
	default:
		return 0.4, true
	}
}

// scoreRegion scores 1.0 only when both sides declared a region and the
// regions match case-insensitively.
func scoreRegion(subject, candidate *profile.Profile) float64 {
	a := strings.TrimSpace(subject.Region)
	b := strings.TrimSpace(candidate.Region)
	if a == "" || b == "" {
		return 0.0
	}
	if strings.EqualFold(a, b) {
		return 1.0
	}
	return 0.0
}

// scoreReputation maps the candidate's 0-100 trust scalar into [0, 1].
func scoreReputation(candidate *profile.Profile) float64 {
	score := candidate.TrustScore / 100.0
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

// TimingReadiness reports how ready a candidate is for contact right
// now, 0-100. It is displayed alongside matches but never enters the
// weighted total.
func TimingReadiness(candidate *profile.Profile, now time.Time) int {
	if candidate.Online {
		return 90
	}
	hours := now.Sub(candidate.LastActiveAt).Hours()
	switch {
	case hours < 2:
		return 85
	case hours < 6:
		return 75
	case hours < 24:
		return 55
	case hours < 72:
		return 40
	default:
		return 25
	}
}
