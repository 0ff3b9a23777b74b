// Package compat provides categorical compatibility tables that translate
// pairs of enumerated profile attributes into affinity scores.
package compat

// NeutralAffinity is the fallback score used when either value of a pair
// is missing from a table. It is deliberately 0.5 rather than 0 so that
// an unrecognized or newly-added enum value never penalizes a match.
const NeutralAffinity = 0.5

// Table maps (valueA, valueB) pairs to an affinity score in [0, 1].
// Tables are directional: Lookup(a, b) reads row a, column b, and the
// off-diagonal entries are not required to be symmetric.
type Table map[string]map[string]float64

// Lookup returns the affinity for the (a, b) pair.
// Returns NeutralAffinity when a or b is absent from the table.
// Callers are expected to gate on both sides actually having the
// attribute set; Lookup itself only handles values the table does not
// know about.
func (t Table) Lookup(a, b string) float64 {
	row, ok := t[a]
	if !ok {
		return NeutralAffinity
	}
	score, ok := row[b]
	if !ok {
		return NeutralAffinity
	}
	return score
}

// CommunicationStyles scores pairs of communication styles.
// Direct communicators land well with analytical partners who want the
// unvarnished read, less well with reflective ones who need room.
var CommunicationStyles = Table{
	"direct": {
		"direct":     1.0,
		"analytical": 0.85,
		"expressive": 0.7,
		"gentle":     0.55,
		"reflective": 0.45,
	},
	"gentle": {
		"gentle":     1.0,
		"reflective": 0.9,
		"expressive": 0.75,
		"analytical": 0.6,
		"direct":     0.55,
	},
	"analytical": {
		"analytical": 1.0,
		"direct":     0.85,
		"reflective": 0.7,
		"gentle":     0.6,
		"expressive": 0.5,
	},
	"expressive": {
		"expressive": 1.0,
		"gentle":     0.75,
		"direct":     0.7,
		"reflective": 0.5,
		"analytical": 0.5,
	},
	"reflective": {
		"reflective": 1.0,
		"gentle":     0.9,
		"analytical": 0.7,
		"expressive": 0.5,
		"direct":     0.45,
	},
}

// DepthPreferences scores pairs of conversation-depth preferences.
// Adjacent preferences remain workable; the casual/profound combination
// is the hardest gap to bridge.
var DepthPreferences = Table{
	"casual": {
		"casual":   1.0,
		"balanced": 0.75,
		"deep":     0.5,
		"profound": 0.3,
	},
	"balanced": {
		"balanced": 1.0,
		"casual":   0.75,
		"deep":     0.8,
		"profound": 0.55,
	},
	"deep": {
		"deep":     1.0,
		"profound": 0.85,
		"balanced": 0.8,
		"casual":   0.5,
	},
	"profound": {
		"profound": 1.0,
		"deep":     0.85,
		"balanced": 0.55,
		"casual":   0.3,
	},
}

// ConflictApproaches scores pairs of conflict-handling approaches.
// Cooling off and mediation mix well with everything; a direct
// addresser paired with an avoider is the roughest combination.
var ConflictApproaches = Table{
	"address-directly": {
		"address-directly": 1.0,
		"cool-off-first":   0.7,
		"seek-mediation":   0.65,
		"avoid":            0.4,
	},
	"cool-off-first": {
		"cool-off-first":   1.0,
		"address-directly": 0.7,
		"seek-mediation":   0.8,
		"avoid":            0.55,
	},
	"seek-mediation": {
		"seek-mediation":   1.0,
		"cool-off-first":   0.8,
		"address-directly": 0.65,
		"avoid":            0.6,
	},
	"avoid": {
		"avoid":            1.0,
		"cool-off-first":   0.55,
		"seek-mediation":   0.6,
		"address-directly": 0.4,
	},
}

// Archetypes scores pairs of practice-personality archetypes.
// Complementary pairs (sage/seeker, healer/guardian) score nearly as
// well as matched pairs.
var Archetypes = Table{
	"sage": {
		"sage":     1.0,
		"seeker":   0.9,
		"mystic":   0.75,
		"builder":  0.65,
		"healer":   0.6,
		"guardian": 0.55,
	},
	"seeker": {
		"seeker":   1.0,
		"sage":     0.9,
		"mystic":   0.8,
		"healer":   0.65,
		"builder":  0.6,
		"guardian": 0.5,
	},
	"healer": {
		"healer":   1.0,
		"guardian": 0.9,
		"seeker":   0.65,
		"mystic":   0.65,
		"sage":     0.6,
		"builder":  0.55,
	},
	"builder": {
		"builder":  1.0,
		"guardian": 0.85,
		"sage":     0.65,
		"seeker":   0.6,
		"healer":   0.55,
		"mystic":   0.45,
	},
	"mystic": {
		"mystic":   1.0,
		"seeker":   0.8,
		"sage":     0.75,
		"healer":   0.65,
		"guardian": 0.5,
		"builder":  0.45,
	},
	"guardian": {
		"guardian": 1.0,
		"healer":   0.9,
		"builder":  0.85,
		"sage":     0.55,
		"seeker":   0.5,
		"mystic":   0.5,
	},
}
