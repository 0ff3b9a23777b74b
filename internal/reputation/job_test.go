package reputation

import (
	"context"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/sanghalabs/kindred/internal/feedback"
	"github.com/sanghalabs/kindred/internal/profile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJob(source FeedbackSource, scores ScoreStore, tracker *DirtyTracker) *RecomputeJob {
	return NewRecomputeJob(
		RecomputeJobConfig{
			Interval: 50 * time.Millisecond,
			Logger:   testLogger(),
		},
		tracker,
		source,
		scores,
	)
}

func seedMember(profiles *profile.InMemoryStore, id string) {
	profiles.Put(&profile.Profile{
		ID:         id,
		Visibility: profile.VisibilityPublic,
		TrustScore: MidpointScore,
	})
}

func TestRecomputeJob_StartStop(t *testing.T) {
	job := newTestJob(feedback.NewInMemoryStore(), profile.NewInMemoryStore(), NewDirtyTracker())

	// Job should not be running initially
	if job.IsRunning() {
		t.Error("job should not be running before Start")
	}

	ctx := context.Background()
	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if !job.IsRunning() {
		t.Error("job should be running after Start")
	}

	// Starting again should be safe (idempotent)
	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() second call error = %v", err)
	}

	job.Stop()

	if job.IsRunning() {
		t.Error("job should not be running after Stop")
	}

	// Stopping again should be safe
	job.Stop()
}

func TestRecomputeJob_RecomputesOnlyDirtyMembers(t *testing.T) {
	source := feedback.NewInMemoryStore()
	profiles := profile.NewInMemoryStore()
	tracker := NewDirtyTracker()

	seedMember(profiles, "m1")
	seedMember(profiles, "m2")
	source.Add(feedback.Record{
		SubjectID: "rater", TargetID: "m1", Rating: 5,
		CreatedAt: time.Now().Add(-time.Hour),
	})
	source.Add(feedback.Record{
		SubjectID: "rater", TargetID: "m2", Rating: 1,
		CreatedAt: time.Now().Add(-time.Hour),
	})

	job := newTestJob(source, profiles, tracker)

	// Mark only m1 as dirty. The poll window starts at RecomputeNow and the
	// feedback above predates it, so m2 stays clean.
	tracker.MarkDirty("m1")
	job.RecomputeNow()

	p1, err := profiles.GetByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetByID(m1) error = %v", err)
	}
	want := 350.0 / 6.0 // one top rating damped toward the midpoint
	if math.Abs(p1.TrustScore-want) > 1e-9 {
		t.Errorf("m1 trust score = %v, want %v", p1.TrustScore, want)
	}

	p2, err := profiles.GetByID(context.Background(), "m2")
	if err != nil {
		t.Fatalf("GetByID(m2) error = %v", err)
	}
	if p2.TrustScore != MidpointScore {
		t.Errorf("m2 trust score = %v, want untouched midpoint", p2.TrustScore)
	}

	if tracker.IsDirty("m1") {
		t.Error("m1 should not be dirty after recompute")
	}
}

func TestRecomputeJob_PollMarksRatedTargetsDirty(t *testing.T) {
	source := feedback.NewInMemoryStore()
	profiles := profile.NewInMemoryStore()
	tracker := NewDirtyTracker()

	seedMember(profiles, "m1")

	job := newTestJob(source, profiles, tracker)

	// Feedback dated in the future relative to the poll window is picked up.
	source.Add(feedback.Record{
		SubjectID: "rater", TargetID: "m1", Rating: 4,
		CreatedAt: time.Now().Add(time.Minute),
	})

	job.RecomputeNow()

	p1, err := profiles.GetByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetByID(m1) error = %v", err)
	}
	want := (75.0 + MidpointScore*PriorWeight) / (1 + PriorWeight)
	if math.Abs(p1.TrustScore-want) > 1e-9 {
		t.Errorf("m1 trust score = %v, want %v", p1.TrustScore, want)
	}
}

func TestRecomputeJob_PeriodicExecution(t *testing.T) {
	source := feedback.NewInMemoryStore()
	profiles := profile.NewInMemoryStore()
	tracker := NewDirtyTracker()

	seedMember(profiles, "m1")
	source.Add(feedback.Record{
		SubjectID: "rater", TargetID: "m1", Rating: 5,
		CreatedAt: time.Now().Add(-time.Hour),
	})

	job := newTestJob(source, profiles, tracker)

	ctx := context.Background()
	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer job.Stop()

	tracker.MarkDirty("m1")

	// Wait for at least one tick
	time.Sleep(120 * time.Millisecond)

	p1, err := profiles.GetByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetByID(m1) error = %v", err)
	}
	if p1.TrustScore == MidpointScore {
		t.Error("expected trust score to change after periodic tick")
	}
	if tracker.IsDirty("m1") {
		t.Error("m1 should not be dirty after recompute")
	}
}

func TestRecomputeJob_ContextCancellation(t *testing.T) {
	job := newTestJob(feedback.NewInMemoryStore(), profile.NewInMemoryStore(), NewDirtyTracker())

	ctx, cancel := context.WithCancel(context.Background())
	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if !job.IsRunning() {
		t.Error("job should be running")
	}

	cancel()

	// Give job time to notice cancellation
	time.Sleep(50 * time.Millisecond)

	job.Stop()

	if job.IsRunning() {
		t.Error("job should have stopped after context cancellation")
	}
}

func TestRecomputeJob_MissingMemberLeftDirty(t *testing.T) {
	source := feedback.NewInMemoryStore()
	profiles := profile.NewInMemoryStore()
	tracker := NewDirtyTracker()

	// Feedback for a member with no stored profile.
	source.Add(feedback.Record{
		SubjectID: "rater", TargetID: "ghost", Rating: 5,
		CreatedAt: time.Now().Add(-time.Hour),
	})

	job := newTestJob(source, profiles, tracker)

	tracker.MarkDirty("ghost")
	job.RecomputeNow()

	// The score write fails, so the member stays dirty for a later retry.
	if !tracker.IsDirty("ghost") {
		t.Error("ghost should remain dirty after failed recompute")
	}
}

func TestRecomputeJob_DefaultConfig(t *testing.T) {
	job := NewRecomputeJob(
		RecomputeJobConfig{},
		NewDirtyTracker(),
		feedback.NewInMemoryStore(),
		profile.NewInMemoryStore(),
	)

	if job.config.Interval != DefaultRecomputeInterval {
		t.Errorf("Interval = %v, want default %v", job.config.Interval, DefaultRecomputeInterval)
	}
	if job.config.Timeout != DefaultRecomputeTimeout {
		t.Errorf("Timeout = %v, want default %v", job.config.Timeout, DefaultRecomputeTimeout)
	}
	if job.config.RatingWindow != DefaultRatingWindow {
		t.Errorf("RatingWindow = %d, want default %d", job.config.RatingWindow, DefaultRatingWindow)
	}
	if job.config.Logger == nil {
		t.Error("expected a default logger")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer job.Stop()

	if !job.IsRunning() {
		t.Error("job should be running with default config")
	}
}

func TestRecomputeJob_EmptyDirtySet(t *testing.T) {
	source := feedback.NewInMemoryStore()
	profiles := profile.NewInMemoryStore()
	seedMember(profiles, "m1")

	job := newTestJob(source, profiles, NewDirtyTracker())

	job.RecomputeNow()

	p1, err := profiles.GetByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetByID(m1) error = %v", err)
	}
	if p1.TrustScore != MidpointScore {
		t.Errorf("trust score = %v, want untouched midpoint", p1.TrustScore)
	}
}
