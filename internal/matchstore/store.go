package matchstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store defines match record persistence operations.
type Store interface {
	// Upsert writes a ranked result, updating the existing record for
	// the (subject, target, type) triple in place or creating a new
	// one. Returns true when a new record was created.
	//
	// Implementations must serialize the lookup-then-write for a given
	// triple relative to itself so concurrent upserts cannot create
	// duplicates.
	Upsert(ctx context.Context, record *Record) (created bool, err error)

	// ListBySubject returns the subject's persisted matches ordered by
	// total score descending, capped at limit.
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]*Record, error)
}

// InMemoryStore is an in-memory Store implementation used for tests and
// development. A single mutex serializes all upserts, which trivially
// satisfies the per-pair serialization requirement.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

// NewInMemoryStore creates an empty in-memory match store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Upsert writes a ranked result, creating or updating in place.
func (s *InMemoryStore) Upsert(_ context.Context, record *Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.TargetType == "" {
		record.TargetType = TargetTypePerson
	}

	existing, ok := s.records[record.Key()]
	if ok {
		updated := cloneRecord(record)
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = s.now()
		s.records[record.Key()] = updated
		return false, nil
	}

	created := cloneRecord(record)
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.CreatedAt = s.now()
	created.UpdatedAt = created.CreatedAt
	s.records[record.Key()] = created
	return true, nil
}

// ListBySubject returns the subject's matches, best score first.
func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID string, limit int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Record
	for _, r := range s.records {
		if r.SubjectID == subjectID {
			out = append(out, cloneRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].TargetID < out[j].TargetID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored records (for tests).
func (s *InMemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func cloneRecord(r *Record) *Record {
	cp := *r
	if r.SubScores != nil {
		cp.SubScores = make(map[string]int, len(r.SubScores))
		for k, v := range r.SubScores {
			cp.SubScores[k] = v
		}
	}
	cp.SharedValues = cloneStrings(r.SharedValues)
	cp.SharedPractices = cloneStrings(r.SharedPractices)
	cp.SharedIntentions = cloneStrings(r.SharedIntentions)
	cp.ComplementarySkills = cloneStrings(r.ComplementarySkills)
	cp.SharedFocusAreas = cloneStrings(r.SharedFocusAreas)
	cp.SupportMatches = cloneStrings(r.SupportMatches)
	cp.ConversationStarters = cloneStrings(r.ConversationStarters)
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
