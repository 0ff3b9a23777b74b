package feedback

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store defines feedback read operations.
type Store interface {
	// ListBySubject returns the subject's most recent feedback records,
	// newest first, capped at limit.
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]Record, error)

	// ListByTarget returns rated records where the member was the
	// target, newest first, capped at limit. Used by the reputation job.
	ListByTarget(ctx context.Context, targetID string, limit int) ([]Record, error)

	// TargetsRatedSince returns the distinct target IDs that received a
	// rating at or after the given time.
	TargetsRatedSince(ctx context.Context, since time.Time) ([]string, error)
}

// InMemoryStore is an in-memory Store implementation used for tests and
// development.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewInMemoryStore creates an empty in-memory feedback store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Add appends a feedback record.
func (s *InMemoryStore) Add(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.SubScores != nil {
		scores := make(map[string]int, len(r.SubScores))
		for k, v := range r.SubScores {
			scores[k] = v
		}
		r.SubScores = scores
	}
	s.records = append(s.records, r)
}

// ListBySubject returns the subject's most recent records, newest first.
func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(limit, func(r Record) bool { return r.SubjectID == subjectID }), nil
}

// ListByTarget returns rated records received by the target, newest first.
func (s *InMemoryStore) ListByTarget(_ context.Context, targetID string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(limit, func(r Record) bool { return r.TargetID == targetID && r.Rated() }), nil
}

// TargetsRatedSince returns distinct target IDs rated at or after since.
func (s *InMemoryStore) TargetsRatedSince(_ context.Context, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.records {
		if !r.Rated() || r.CreatedAt.Before(since) {
			continue
		}
		if _, ok := seen[r.TargetID]; ok {
			continue
		}
		seen[r.TargetID] = struct{}{}
		out = append(out, r.TargetID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *InMemoryStore) filter(limit int, keep func(Record) bool) []Record {
	var out []Record
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
