package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/farefuse/farefuse/internal/snapshot"
)

// Purger removes old snapshots.
type Purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeJob enforces the snapshot retention window.
type PurgeJob struct {
	purger    Purger
	retention time.Duration
	interval  time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	mu      sync.RWMutex
	metrics PurgeMetrics
}

// PurgeMetrics tracks purge job statistics.
type PurgeMetrics struct {
	TotalRuns     int64
	FailedRuns    int64
	TotalDeleted  int64
	LastRunAt     time.Time
	LastDeleted   int64
	LastDuration  time.Duration
	TotalDuration time.Duration
}

// PurgeJobConfig holds configuration for creating a PurgeJob.
type PurgeJobConfig struct {
	Purger Purger
	Config Config
	Now    func() time.Time
	Logger zerolog.Logger
}

// NewPurgeJob creates a new retention purge job.
func NewPurgeJob(cfg PurgeJobConfig) *PurgeJob {
	wcfg := cfg.Config.withDefaults()
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &PurgeJob{
		purger:    cfg.Purger,
		retention: wcfg.Retention,
		interval:  wcfg.PurgeInterval,
		timeout:   wcfg.PurgeTimeout,
		now:       now,
		logger:    cfg.Logger,
	}
}

// PurgeResult contains the result of a purge run.
type PurgeResult struct {
	Cutoff   time.Time
	Deleted  int64
	Duration time.Duration
	Err      error
}

// Run deletes every snapshot fetched before now minus the retention window.
func (j *PurgeJob) Run(ctx context.Context) *PurgeResult {
	start := time.Now()
	result := &PurgeResult{Cutoff: j.now().Add(-j.retention).UTC()}

	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	result.Deleted, result.Err = j.purger.DeleteOlderThan(runCtx, result.Cutoff)
	result.Duration = time.Since(start)

	j.updateMetrics(result)

	if result.Err != nil {
		j.logger.Error().Err(result.Err).Time("cutoff", result.Cutoff).Msg("snapshot purge failed")
		return result
	}

	j.logger.Info().
		Time("cutoff", result.Cutoff).
		Int64("deleted", result.Deleted).
		Dur("duration", result.Duration).
		Msg("snapshot purge completed")

	return result
}

// Start runs the purge immediately and then every interval until ctx is
// cancelled.
func (j *PurgeJob) Start(ctx context.Context) {
	j.logger.Info().
		Dur("interval", j.interval).
		Dur("retention", j.retention).
		Msg("starting snapshot purge job")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *PurgeJob) updateMetrics(result *PurgeResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.metrics.TotalRuns++
	if result.Err != nil {
		j.metrics.FailedRuns++
	}
	j.metrics.TotalDeleted += result.Deleted
	j.metrics.LastRunAt = j.now()
	j.metrics.LastDeleted = result.Deleted
	j.metrics.LastDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *PurgeJob) GetMetrics() PurgeMetrics {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.metrics
}

// MetricsSnapshot returns the current metrics as a map.
func (j *PurgeJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":     m.TotalRuns,
		"failed_runs":    m.FailedRuns,
		"total_deleted":  m.TotalDeleted,
		"last_run_at":    m.LastRunAt,
		"last_deleted":   m.LastDeleted,
		"last_duration":  m.LastDuration.String(),
		"total_duration": m.TotalDuration.String(),
	}
}

var _ Purger = (snapshot.Repository)(nil)
