package profile

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("profile not found")

// Store defines the profile data operations the engine needs.
type Store interface {
	// GetByID retrieves a profile by member ID.
	// Returns ErrNotFound if no profile exists.
	GetByID(ctx context.Context, id string) (*Profile, error)

	// ListCandidates returns public profiles other than excludeID,
	// ordered by trust score descending, capped at limit.
	ListCandidates(ctx context.Context, excludeID string, limit int) ([]*Profile, error)

	// UpdateTrustScore persists a recomputed trust score for a member.
	UpdateTrustScore(ctx context.Context, id string, score float64) error
}

// InMemoryStore is an in-memory Store implementation used for tests and
// development.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemoryStore creates an empty in-memory profile store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]*Profile)}
}

// Put stores or replaces a profile.
func (s *InMemoryStore) Put(p *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p.Clone()
}

// GetByID retrieves a profile by member ID.
func (s *InMemoryStore) GetByID(_ context.Context, id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// ListCandidates returns public profiles other than excludeID, ordered
// by trust score descending, capped at limit.
func (s *InMemoryStore) ListCandidates(_ context.Context, excludeID string, limit int) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Profile
	for _, p := range s.profiles {
		if p.ID == excludeID || !p.IsPublic() {
			continue
		}
		out = append(out, p.Clone())
	}

	// Stable order: trust descending, ID ascending as tie-break so test
	// runs are deterministic across map iteration order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TrustScore != out[j].TrustScore {
			return out[i].TrustScore > out[j].TrustScore
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateTrustScore persists a recomputed trust score for a member.
func (s *InMemoryStore) UpdateTrustScore(_ context.Context, id string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.TrustScore = score
	return nil
}
