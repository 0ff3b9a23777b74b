// Package blocklist provides the per-member exclusion list consulted
// before candidates are scored. A blocklist read failure is a soft
// failure: the matcher proceeds with an empty list rather than aborting.
package blocklist

import (
	"context"
	"sync"
)

// Store defines blocklist read operations.
type Store interface {
	// ListBlocked returns the member IDs the subject has excluded.
	ListBlocked(ctx context.Context, subjectID string) ([]string, error)
}

// InMemoryStore is an in-memory Store implementation used for tests and
// development.
type InMemoryStore struct {
	mu      sync.RWMutex
	blocked map[string][]string
}

// NewInMemoryStore creates an empty in-memory blocklist store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blocked: make(map[string][]string)}
}

// Block records that subjectID excludes targetID.
func (s *InMemoryStore) Block(subjectID, targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[subjectID] = append(s.blocked[subjectID], targetID)
}

// ListBlocked returns the member IDs the subject has excluded.
func (s *InMemoryStore) ListBlocked(_ context.Context, subjectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.blocked[subjectID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}
