package matchstore

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// UpsertStats tracks created-versus-updated counts across one run's
// upsert pass. All operations are safe for concurrent upserts.
type UpsertStats struct {
	created int64
	updated int64
}

// NewUpsertStats creates a zeroed UpsertStats.
func NewUpsertStats() *UpsertStats {
	return &UpsertStats{}
}

// RecordCreate increments the created counter.
func (s *UpsertStats) RecordCreate() {
	atomic.AddInt64(&s.created, 1)
}

// RecordUpdate increments the updated counter.
func (s *UpsertStats) RecordUpdate() {
	atomic.AddInt64(&s.updated, 1)
}

// Created returns the number of records created.
func (s *UpsertStats) Created() int64 {
	return atomic.LoadInt64(&s.created)
}

// Updated returns the number of records updated in place.
func (s *UpsertStats) Updated() int64 {
	return atomic.LoadInt64(&s.updated)
}

// Total returns created + updated.
func (s *UpsertStats) Total() int64 {
	return s.Created() + s.Updated()
}

// String returns a human-readable summary.
func (s *UpsertStats) String() string {
	return fmt.Sprintf("created=%d updated=%d total=%d", s.Created(), s.Updated(), s.Total())
}

// LogSummary logs the counters at INFO level at the end of a run.
func (s *UpsertStats) LogSummary(logger *slog.Logger, subjectID string) {
	logger.Info("match upsert statistics",
		"subject_id", subjectID,
		"created", s.Created(),
		"updated", s.Updated(),
		"total", s.Total(),
	)
}
