package match

import (
	"math"
	"testing"

	"github.com/sanghalabs/kindred/internal/feedback"
)

// ratedRecord builds a feedback record with uniform sub-scores across
// the adapted dimensions.
func ratedRecord(rating, subScore int) feedback.Record {
	return feedback.Record{
		SubjectID: "subject",
		TargetID:  "target",
		Rating:    rating,
		SubScores: map[string]int{
			DimValues:    subScore,
			DimPractices: subScore,
			DimSkills:    subScore,
			DimRegion:    subScore,
		},
	}
}

// TestBaseWeightsSumToOne verifies the default vector is normalized.
func TestBaseWeightsSumToOne(t *testing.T) {
	base := BaseWeights()
	if math.Abs(base.Sum()-1.0) > 1e-9 {
		t.Errorf("expected base weights to sum to 1, got %f", base.Sum())
	}
	if len(base) != len(Dimensions) {
		t.Errorf("expected %d weights, got %d", len(Dimensions), len(base))
	}
}

// TestAdaptWeightsEmptyHistory verifies the base vector passes through
// untouched when there is no feedback.
func TestAdaptWeightsEmptyHistory(t *testing.T) {
	base := BaseWeights()
	adapted := AdaptWeights(base, nil)

	for dim, weight := range base {
		if math.Abs(adapted[dim]-weight) > 1e-9 {
			t.Errorf("dimension %s changed without feedback: %f -> %f", dim, weight, adapted[dim])
		}
	}
}

// TestAdaptWeightsUnratedRecordsIgnored verifies records without a
// rating contribute nothing.
func TestAdaptWeightsUnratedRecordsIgnored(t *testing.T) {
	history := []feedback.Record{
		{SubjectID: "subject", TargetID: "target", Rating: 0,
			SubScores: map[string]int{DimValues: 100}},
	}
	adapted := AdaptWeights(BaseWeights(), history)

	if math.Abs(adapted[DimValues]-BaseWeights()[DimValues]) > 1e-9 {
		t.Errorf("unrated record adapted weights: got %f", adapted[DimValues])
	}
}

// TestAdaptWeightsNeutralRatingContributesNothing verifies a rating of
// 3 leaves the vector at base.
func TestAdaptWeightsNeutralRatingContributesNothing(t *testing.T) {
	adapted := AdaptWeights(BaseWeights(), []feedback.Record{ratedRecord(3, 100)})

	for dim, weight := range BaseWeights() {
		if math.Abs(adapted[dim]-weight) > 1e-9 {
			t.Errorf("dimension %s shifted on neutral rating: %f -> %f", dim, weight, adapted[dim])
		}
	}
}

// TestAdaptWeightsDirection verifies positive ratings raise the adapted
// dimensions and negative ratings lower them, relative to the
// non-adapted dimensions.
func TestAdaptWeightsDirection(t *testing.T) {
	base := BaseWeights()

	up := AdaptWeights(base, []feedback.Record{ratedRecord(5, 100)})
	if up[DimValues] <= base[DimValues] {
		t.Errorf("expected positive rating to raise values weight, got %f (base %f)",
			up[DimValues], base[DimValues])
	}

	down := AdaptWeights(base, []feedback.Record{ratedRecord(1, 100)})
	if down[DimValues] >= base[DimValues] {
		t.Errorf("expected negative rating to lower values weight, got %f (base %f)",
			down[DimValues], base[DimValues])
	}

	// Non-adapted dimensions only move through renormalization, which
	// preserves their proportions relative to each other.
	ratio := up[DimIntentions] / up[DimCommunication]
	baseRatio := base[DimIntentions] / base[DimCommunication]
	if math.Abs(ratio-baseRatio) > 1e-9 {
		t.Errorf("non-adapted dimension proportions changed: %f vs %f", ratio, baseRatio)
	}
}

// TestAdaptWeightsNormalizedAndClamped verifies the vector invariants
// hold for any history content: sum 1, no negative weights.
func TestAdaptWeightsNormalizedAndClamped(t *testing.T) {
	histories := map[string][]feedback.Record{
		"empty": nil,
		"one glowing": {
			ratedRecord(5, 100),
		},
		"one terrible": {
			ratedRecord(1, 100),
		},
		"many glowing": {
			ratedRecord(5, 100), ratedRecord(5, 100), ratedRecord(5, 100),
			ratedRecord(5, 100), ratedRecord(5, 100), ratedRecord(5, 100),
		},
		"mixed": {
			ratedRecord(5, 90), ratedRecord(1, 80), ratedRecord(2, 10), ratedRecord(4, 60),
		},
	}

	for name, history := range histories {
		t.Run(name, func(t *testing.T) {
			adapted := AdaptWeights(BaseWeights(), history)

			if math.Abs(adapted.Sum()-1.0) > 1e-9 {
				t.Errorf("expected adapted weights to sum to 1, got %.12f", adapted.Sum())
			}
			for _, dim := range Dimensions {
				if adapted[dim] < 0 {
					t.Errorf("dimension %s has negative weight %f", dim, adapted[dim])
				}
			}
		})
	}
}

// TestAdaptWeightsDamping verifies more history dampens the per-record
// influence: one glowing review moves weights further than the same
// review diluted among many.
func TestAdaptWeightsDamping(t *testing.T) {
	base := BaseWeights()

	one := AdaptWeights(base, []feedback.Record{ratedRecord(5, 100)})

	var many []feedback.Record
	for i := 0; i < 25; i++ {
		many = append(many, ratedRecord(3, 100)) // neutral filler
	}
	many = append(many, ratedRecord(5, 100))
	diluted := AdaptWeights(base, many)

	oneShift := one[DimValues] - base[DimValues]
	dilutedShift := diluted[DimValues] - base[DimValues]
	if dilutedShift >= oneShift {
		t.Errorf("expected damping with more rated records: single shift %f, diluted shift %f",
			oneShift, dilutedShift)
	}
}

// TestAdaptWeightsClampCeiling verifies an extreme positive history
// cannot push an adapted weight past MaxWeight before normalization.
func TestAdaptWeightsClampCeiling(t *testing.T) {
	// A base vector already near the ceiling plus a strong nudge.
	base := BaseWeights()
	base[DimValues] = 0.59

	adapted := AdaptWeights(base, []feedback.Record{ratedRecord(5, 100)})

	// After clamping to MaxWeight the vector is renormalized; the
	// values weight can therefore never exceed MaxWeight / sum where
	// sum >= 1 would shrink further, but the pre-normalization clamp is
	// what we pin here: the weight cannot exceed MaxWeight divided by
	// the smallest possible total, which for this vector stays below 1.
	if adapted[DimValues] > MaxWeight {
		t.Errorf("values weight %f exceeds clamp ceiling %f", adapted[DimValues], MaxWeight)
	}
}

// TestAdaptWeightsReputationClampFloor verifies the reputation weight
// is re-clamped into its own band whenever adaptation runs.
func TestAdaptWeightsReputationClampFloor(t *testing.T) {
	base := BaseWeights()
	base[DimReputation] = 0.001 // below the reputation floor

	adapted := AdaptWeights(base, []feedback.Record{ratedRecord(4, 50)})

	// Pre-normalization the reputation weight is raised to its floor;
	// normalization then scales the whole vector by a factor near 1,
	// so the result must be near the floor rather than near 0.001.
	if adapted[DimReputation] < MinReputationWeight/2 {
		t.Errorf("expected reputation weight near %f after re-clamp, got %f",
			MinReputationWeight, adapted[DimReputation])
	}
}

// TestWeightVectorNormalizeZeroMass verifies a degenerate vector resets
// to base instead of dividing by zero.
func TestWeightVectorNormalizeZeroMass(t *testing.T) {
	w := WeightVector{DimValues: 0, DimSkills: 0}
	w.Normalize()

	if math.Abs(w.Sum()-1.0) > 1e-9 {
		t.Errorf("expected reset vector to sum to 1, got %f", w.Sum())
	}
}
