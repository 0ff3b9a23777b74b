// Package similarity provides set-similarity primitives used by the
// match dimension scorers.
package similarity

import "strings"

// Normalize converts a tag list into a canonical set: elements are
// lower-cased and trimmed, empty strings are dropped, and duplicates are
// removed. A nil input yields an empty set.
//
// All scorers operate on normalized sets so that "Meditation" and
// "meditation " count as the same tag.
func Normalize(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

// Jaccard computes the Jaccard index |A∩B| / |A∪B| of two tag lists
// after normalization.
//
// Returns 0.0 when both sets are empty. The result is always
// in [0, 1] and symmetric in its arguments.
func Jaccard(a, b []string) float64 {
	setA := Normalize(a)
	setB := Normalize(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for tag := range setA {
		if _, ok := setB[tag]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union < 1 {
		union = 1
	}

	return float64(intersection) / float64(union)
}

// Coverage computes the fraction of a's elements that also appear in b,
// after normalization. Unlike Jaccard it is directional: it answers
// "how much of what a asks for does b provide".
//
// Returns 0.0 when a is empty, regardless of b.
func Coverage(a, b []string) float64 {
	setA := Normalize(a)
	if len(setA) == 0 {
		return 0.0
	}
	setB := Normalize(b)

	covered := 0
	for tag := range setA {
		if _, ok := setB[tag]; ok {
			covered++
		}
	}

	return float64(covered) / float64(len(setA))
}

// Shared returns up to limit tags present in both lists, preserving a's
// order. Used by the explanation synthesizer to surface overlapping
// values, practices, and intentions.
func Shared(a, b []string, limit int) []string {
	setB := Normalize(b)
	seen := make(map[string]struct{}, limit)

	var shared []string
	for _, tag := range a {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		if _, ok := setB[t]; ok {
			shared = append(shared, t)
			seen[t] = struct{}{}
			if len(shared) == limit {
				break
			}
		}
	}
	return shared
}
