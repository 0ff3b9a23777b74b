package reputation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sanghalabs/kindred/internal/feedback"
)

// FeedbackSource provides the rating history used to compute trust
// scores and the poll feed used to discover members needing recompute.
type FeedbackSource interface {
	// ListByTarget returns the most recent rated feedback a member received.
	ListByTarget(ctx context.Context, targetID string, limit int) ([]feedback.Record, error)
	// TargetsRatedSince returns members who received new ratings after the
	// given time.
	TargetsRatedSince(ctx context.Context, since time.Time) ([]string, error)
}

// ScoreStore persists computed trust scores.
type ScoreStore interface {
	// UpdateTrustScore stores a member's recomputed trust score.
	UpdateTrustScore(ctx context.Context, memberID string, score float64) error
}

// JobMetrics provides centralized background job metrics tracking.
// This interface allows the job to report to the centralized job metrics system.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

const jobTypeRecompute = "reputation_recompute"

// DefaultRecomputeInterval is the default interval between recompute cycles.
const DefaultRecomputeInterval = 30 * time.Second

// DefaultRecomputeTimeout is the default timeout for a single recompute cycle.
const DefaultRecomputeTimeout = 30 * time.Second

// DefaultRatingWindow caps how many recent ratings feed a member's score.
const DefaultRatingWindow = feedback.DefaultHistoryWindow

// RecomputeJobConfig configures the trust score recompute job.
type RecomputeJobConfig struct {
	// Interval is the duration between recompute cycles.
	Interval time.Duration
	// Logger for job activity.
	Logger *slog.Logger
	// Metrics for performance tracking.
	Metrics *Metrics
	// JobMetrics for centralized background job tracking.
	JobMetrics JobMetrics
	// Timeout for each recompute cycle.
	Timeout time.Duration
	// RatingWindow caps the feedback history fetched per member.
	RatingWindow int
}

// RecomputeJob periodically recalculates trust scores for members with
// new feedback. Members can also be marked dirty directly, for example
// when feedback arrives through the API.
type RecomputeJob struct {
	config       RecomputeJobConfig
	dirtyTracker *DirtyTracker
	source       FeedbackSource
	scores       ScoreStore

	mu       sync.Mutex
	running  bool
	lastPoll time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRecomputeJob creates a new trust score recompute job.
func NewRecomputeJob(
	config RecomputeJobConfig,
	dirtyTracker *DirtyTracker,
	source FeedbackSource,
	scores ScoreStore,
) *RecomputeJob {
	if config.Interval == 0 {
		config.Interval = DefaultRecomputeInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultRecomputeTimeout
	}
	if config.RatingWindow == 0 {
		config.RatingWindow = DefaultRatingWindow
	}

	return &RecomputeJob{
		config:       config,
		dirtyTracker: dirtyTracker,
		source:       source,
		scores:       scores,
		lastPoll:     time.Now(),
	}
}

// Start begins the periodic recompute job.
// Returns immediately; the job runs in a background goroutine.
func (j *RecomputeJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

// Stop signals the recompute job to stop and waits for it to finish.
func (j *RecomputeJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is currently running.
func (j *RecomputeJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// run is the main loop for the recompute job.
func (j *RecomputeJob) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("reputation recompute job stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("reputation recompute job stopping due to stop signal")
			return
		case <-ticker.C:
			j.pollNewFeedback(ctx)
			j.recomputeDirtyMembers(ctx)
		}
	}
}

// pollNewFeedback marks members who received ratings since the last
// poll as dirty.
func (j *RecomputeJob) pollNewFeedback(ctx context.Context) {
	j.mu.Lock()
	since := j.lastPoll
	j.mu.Unlock()

	polledAt := time.Now()
	targets, err := j.source.TargetsRatedSince(ctx, since)
	if err != nil {
		j.config.Logger.Error("failed to poll for new feedback", "error", err)
		if j.config.Metrics != nil {
			j.config.Metrics.IncRecomputeErrors()
		}
		if j.config.JobMetrics != nil {
			j.config.JobMetrics.IncJobErrors(jobTypeRecompute, "poll_error")
		}
		return
	}

	for _, id := range targets {
		j.dirtyTracker.MarkDirty(id)
	}

	j.mu.Lock()
	j.lastPoll = polledAt
	j.mu.Unlock()
}

// recomputeDirtyMembers processes all dirty members and updates their
// trust scores.
func (j *RecomputeJob) recomputeDirtyMembers(parentCtx context.Context) {
	dirtyMembers := j.dirtyTracker.DirtyMembers()
	if len(dirtyMembers) == 0 {
		return
	}

	// Create context with timeout derived from parent
	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	startTime := time.Now()
	memberCount := len(dirtyMembers)
	var successCount int

	j.config.Logger.Info("recomputing trust scores",
		"dirty_count", memberCount)

	for i, memberID := range dirtyMembers {
		select {
		case <-ctx.Done():
			j.config.Logger.Error("reputation recompute timeout exceeded",
				"processed", i,
				"total", memberCount,
				"timeout", j.config.Timeout)
			if j.config.Metrics != nil {
				j.config.Metrics.IncRecomputeErrors()
			}
			duration := time.Since(startTime).Seconds()
			if j.config.Metrics != nil {
				j.config.Metrics.ObserveRecomputeDuration(duration)
			}
			if j.config.JobMetrics != nil {
				j.config.JobMetrics.IncJobErrors(jobTypeRecompute, "timeout")
				j.config.JobMetrics.IncJobsTotal(jobTypeRecompute, "failure")
				j.config.JobMetrics.ObserveJobDuration(jobTypeRecompute, duration)
			}
			return
		default:
		}

		if err := j.recomputeMember(ctx, memberID); err != nil {
			j.config.Logger.Error("failed to recompute trust score",
				"member_id", memberID,
				"error", err)
			if j.config.Metrics != nil {
				j.config.Metrics.IncRecomputeErrors()
			}
			if j.config.JobMetrics != nil {
				j.config.JobMetrics.IncJobErrors(jobTypeRecompute, "recompute_error")
			}
			continue
		}

		j.dirtyTracker.ClearDirty(memberID)
		successCount++

		// Log batch progress every 10 members
		if (i+1)%10 == 0 {
			j.config.Logger.Debug("recompute progress",
				"processed", i+1,
				"total", memberCount)
		}
	}

	duration := time.Since(startTime).Seconds()

	status := "success"
	if successCount < memberCount {
		status = "failure"
	}

	if j.config.Metrics != nil {
		j.config.Metrics.IncRecomputeTotal()
		j.config.Metrics.ObserveRecomputeDuration(duration)
		j.config.Metrics.SetLastRecomputeTimestamp(float64(time.Now().Unix()))
		j.config.Metrics.SetLastRecomputeMemberCount(float64(successCount))
	}
	if j.config.JobMetrics != nil {
		j.config.JobMetrics.IncJobsTotal(jobTypeRecompute, status)
		j.config.JobMetrics.ObserveJobDuration(jobTypeRecompute, duration)
	}

	j.config.Logger.Info("reputation recompute completed",
		"duration_seconds", duration,
		"members_processed", successCount,
		"members_failed", memberCount-successCount)
}

// recomputeMember calculates and stores the trust score for a single member.
func (j *RecomputeJob) recomputeMember(ctx context.Context, memberID string) error {
	records, err := j.source.ListByTarget(ctx, memberID, j.config.RatingWindow)
	if err != nil {
		return err
	}

	score := ComputeScore(records)

	if err := j.scores.UpdateTrustScore(ctx, memberID, score); err != nil {
		return err
	}

	j.config.Logger.Debug("trust score recomputed",
		"member_id", memberID,
		"score", score,
		"ratings", len(records))

	return nil
}

// RecomputeNow immediately polls for new feedback and recomputes all
// dirty members without waiting for the ticker. This is useful for
// testing or forcing immediate updates.
func (j *RecomputeJob) RecomputeNow() {
	j.pollNewFeedback(context.Background())
	j.recomputeDirtyMembers(context.Background())
}
