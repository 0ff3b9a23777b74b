// Package reputation computes member trust scores from the match
// feedback they receive and keeps them current via a background
// recompute job.
package reputation

import (
	"sync"
	"time"

	"github.com/sanghalabs/kindred/internal/feedback"
)

// MidpointScore is the neutral trust score assigned to members with no
// rating history. New members start here rather than at zero so that a
// single bad rating cannot crater their reputation.
const MidpointScore = 50.0

// PriorWeight is the number of phantom midpoint ratings blended into
// the mean. Small samples stay close to the midpoint; the observed
// ratings dominate as history accumulates.
const PriorWeight = 5.0

// MaxScore and MinScore bound the computed trust score.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// ratingToScore maps a 1-5 rating onto the 0-100 trust scale.
func ratingToScore(rating int) float64 {
	return float64(rating-feedback.MinRating) / float64(feedback.MaxRating-feedback.MinRating) * MaxScore
}

// ComputeScore calculates a member's trust score from the rated
// feedback they have received. The result is a damped mean: the
// observed ratings are averaged together with PriorWeight phantom
// ratings at the midpoint, so sparse histories regress toward 50.
// Unrated records are ignored. With no rated records the score is the
// midpoint.
func ComputeScore(records []feedback.Record) float64 {
	var sum float64
	var count int
	for _, r := range records {
		if !r.Rated() {
			continue
		}
		sum += ratingToScore(r.Rating)
		count++
	}
	if count == 0 {
		return MidpointScore
	}

	score := (sum + MidpointScore*PriorWeight) / (float64(count) + PriorWeight)
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// DirtyTracker tracks which members have received new feedback and
// need their trust score recomputed. Thread-safe via RWMutex.
type DirtyTracker struct {
	mu         sync.RWMutex
	dirtyFlags map[string]time.Time // memberID -> time marked dirty
}

// NewDirtyTracker creates a new DirtyTracker instance.
func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{
		dirtyFlags: make(map[string]time.Time),
	}
}

// MarkDirty marks a member as needing trust score recomputation.
func (t *DirtyTracker) MarkDirty(memberID string) {
	t.mu.Lock()
	t.dirtyFlags[memberID] = time.Now()
	t.mu.Unlock()
}

// ClearDirty removes the dirty flag for a member after recomputation.
func (t *DirtyTracker) ClearDirty(memberID string) {
	t.mu.Lock()
	delete(t.dirtyFlags, memberID)
	t.mu.Unlock()
}

// DirtyMembers returns the member IDs currently marked dirty.
// Returns a copy to avoid external modification.
func (t *DirtyTracker) DirtyMembers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members := make([]string, 0, len(t.dirtyFlags))
	for id := range t.dirtyFlags {
		members = append(members, id)
	}
	return members
}

// IsDirty checks if a specific member is marked as dirty.
func (t *DirtyTracker) IsDirty(memberID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.dirtyFlags[memberID]
	return exists
}

// DirtyCount returns the number of members marked as dirty.
func (t *DirtyTracker) DirtyCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.dirtyFlags)
}
