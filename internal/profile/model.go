// Package profile provides the member profile model and stores backing
// the matching engine. Profiles are created and edited elsewhere; the
// engine treats them as read-only input, except for the trust score
// maintained by the reputation job.
package profile

import "time"

// Visibility values for a profile.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Lineage sentinel values with special scoring semantics.
const (
	LineageEclectic   = "eclectic"
	LineageUndeclared = "prefer-not-to-say"
)

// PracticeFrequencies is the ordered 5-point scale for how often a
// member practices. Index distance drives the spiritual-depth scorer.
var PracticeFrequencies = []string{"rarely", "monthly", "weekly", "several-times-week", "daily"}

// PracticeDepths is the ordered 5-point scale for how far into practice
// a member considers themselves.
var PracticeDepths = []string{"curious", "exploring", "committed", "devoted", "immersed"}

// Profile holds everything the scorers read about a member.
//
// Scalar attributes a member may decline to provide are pointers:
// nil means "not provided", which excludes the corresponding scoring
// factor entirely and is distinct from an empty string or empty list.
type Profile struct {
	ID          string
	DisplayName string
	Visibility  string

	// Tag lists. A nil or empty list means the member listed nothing;
	// list-based factors treat the two identically.
	Values           []string
	Practices        []string
	Skills           []string
	Intentions       []string
	SeekingSkills    []string // skills the member wants to learn
	OfferingSkills   []string // skills the member wants to share
	ConnectionTypes  []string // kinds of relationship sought (mentor, peer, ...)
	QualitiesSought  []string
	QualitiesOffered []string
	FocusAreas       []string
	ShortTermGoals   []string
	SeekingSupport   []string
	OfferingSupport  []string
	Teachers         []string
	Texts            []string

	// Optional enum attributes.
	CommunicationStyle *string
	DepthPreference    *string
	FeedbackStyle      *string
	ConflictApproach   *string
	PracticeFrequency  *string
	PracticeDepth      *string
	Lineage            *string
	Archetype          *string

	// Region is matched case-insensitively; empty means not provided.
	Region string

	// TrustScore is the member's 0-100 reputation scalar, maintained by
	// the reputation recompute job.
	TrustScore float64

	Online       bool
	LastActiveAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPublic reports whether the profile may appear in candidate pools.
func (p *Profile) IsPublic() bool {
	return p.Visibility == VisibilityPublic
}

// Clone returns a deep copy of the profile so stores can hand out
// records without aliasing their internal state.
func (p *Profile) Clone() *Profile {
	cp := *p
	cp.Values = cloneStrings(p.Values)
	cp.Practices = cloneStrings(p.Practices)
	cp.Skills = cloneStrings(p.Skills)
	cp.Intentions = cloneStrings(p.Intentions)
	cp.SeekingSkills = cloneStrings(p.SeekingSkills)
	cp.OfferingSkills = cloneStrings(p.OfferingSkills)
	cp.ConnectionTypes = cloneStrings(p.ConnectionTypes)
	cp.QualitiesSought = cloneStrings(p.QualitiesSought)
	cp.QualitiesOffered = cloneStrings(p.QualitiesOffered)
	cp.FocusAreas = cloneStrings(p.FocusAreas)
	cp.ShortTermGoals = cloneStrings(p.ShortTermGoals)
	cp.SeekingSupport = cloneStrings(p.SeekingSupport)
	cp.OfferingSupport = cloneStrings(p.OfferingSupport)
	cp.Teachers = cloneStrings(p.Teachers)
	cp.Texts = cloneStrings(p.Texts)
	cp.CommunicationStyle = cloneString(p.CommunicationStyle)
	cp.DepthPreference = cloneString(p.DepthPreference)
	cp.FeedbackStyle = cloneString(p.FeedbackStyle)
	cp.ConflictApproach = cloneString(p.ConflictApproach)
	cp.PracticeFrequency = cloneString(p.PracticeFrequency)
	cp.PracticeDepth = cloneString(p.PracticeDepth)
	cp.Lineage = cloneString(p.Lineage)
	cp.Archetype = cloneString(p.Archetype)
	return &cp
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ScaleDistance returns the index distance of two values on an ordered
// scale, or -1 when either value is not on the scale.
func ScaleDistance(scale []string, a, b string) int {
	ia, ib := -1, -1
	for i, v := range scale {
		if v == a {
			ia = i
		}
		if v == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return -1
	}
	d := ia - ib
	if d < 0 {
		d = -d
	}
	return d
}
