package match

import (
	"math"

	"github.com/sanghalabs/kindred/internal/feedback"
)

// Weight clamp bounds. Adapted weights may never leave
// [MinWeight, MaxWeight]; the reputation weight has its own tighter
// band and is re-clamped every run even though it is never adapted.
const (
	MinWeight = 0.05
	MaxWeight = 0.6

	MinReputationWeight = 0.03
	MaxReputationWeight = 0.12

	// AdaptationRate scales the feedback nudge before the
	// diminishing-return damping by sqrt(n) is applied.
	AdaptationRate = 0.15
)

// AdaptedDimensions are the only dimensions the controller nudges from
// feedback. The remaining six keep their base weights. Kept as an
// exported list so the limitation is visible to product review.
var AdaptedDimensions = []string{DimValues, DimPractices, DimSkills, DimRegion}

// WeightVector maps dimension name to a non-negative weight. A usable
// vector sums to 1; Normalize enforces this.
type WeightVector map[string]float64

// BaseWeights returns the default weight vector. The values sum to 1.
func BaseWeights() WeightVector {
	return WeightVector{
		DimValues:         0.15,
		DimPractices:      0.10,
		DimSkills:         0.15,
		DimIntentions:     0.12,
		DimRelationship:   0.10,
		DimCommunication:  0.12,
		DimGoals:          0.10,
		DimSpiritualDepth: 0.08,
		DimRegion:         0.05,
		DimReputation:     0.03,
	}
}

// Clone returns a copy of the vector.
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Sum returns the total of all weights.
func (w WeightVector) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// Normalize scales the vector in place so its weights sum to 1.
// A vector with no positive mass is reset to the base vector.
func (w WeightVector) Normalize() {
	sum := w.Sum()
	if sum <= 0 {
		for k, v := range BaseWeights() {
			w[k] = v
		}
		return
	}
	for k := range w {
		w[k] /= sum
	}
}

// AdaptWeights derives a per-run weight vector from the base vector and
// the subject's recent feedback history.
//
// For each rated record, the rating is mapped to a delta in [-1, +1]
// (neutral 3 contributes 0) and multiplied by the record's stored
// sub-score for each adapted dimension. The accumulated nudge is damped
// by AdaptationRate / sqrt(n) so a handful of ratings cannot swing
// weights far, then each adapted weight is clamped, the reputation
// weight is re-clamped, and the whole vector is renormalized to sum
// to 1.
//
// With no rated history the base vector is returned unchanged (modulo
// normalization, a no-op for the default base).
func AdaptWeights(base WeightVector, history []feedback.Record) WeightVector {
	weights := base.Clone()

	accumulated := make(map[string]float64, len(AdaptedDimensions))
	var rated int
	for _, record := range history {
		if !record.Rated() {
			continue
		}
		rated++
		delta := float64(record.Rating-feedback.NeutralRating) / 2.0
		for _, dim := range AdaptedDimensions {
			accumulated[dim] += delta * float64(record.SubScore(dim)) / 100.0
		}
	}

	if rated == 0 {
		weights.Normalize()
		return weights
	}

	factor := AdaptationRate / math.Sqrt(float64(rated))
	for _, dim := range AdaptedDimensions {
		weights[dim] = clamp(weights[dim]+accumulated[dim]*factor, MinWeight, MaxWeight)
	}
	weights[DimReputation] = clamp(weights[DimReputation], MinReputationWeight, MaxReputationWeight)

	weights.Normalize()
	return weights
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
