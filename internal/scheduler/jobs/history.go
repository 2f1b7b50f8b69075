package jobs

import (
	"context"
	"time"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/internal/history"
	"github.com/wonny/dqguard/pkg/logger"
)

// HistorySnapshotJob logs a per-source health line and flags stuck sources
type HistorySnapshotJob struct {
	store        *history.Store
	recentWindow func() time.Duration
	stuckAfter   func() int
	logger       *logger.Logger
	now          func() time.Time
}

// NewHistorySnapshotJob creates a new history snapshot job. recentWindow
// and stuckAfter are read on every run so threshold swaps apply.
func NewHistorySnapshotJob(store *history.Store, recentWindow func() time.Duration, stuckAfter func() int, log *logger.Logger) *HistorySnapshotJob {
	return &HistorySnapshotJob{
		store:        store,
		recentWindow: recentWindow,
		stuckAfter:   stuckAfter,
		logger:       log,
		now:          time.Now,
	}
}

// Name returns the job name
func (j *HistorySnapshotJob) Name() string {
	return "history_snapshot"
}

// Schedule returns the cron schedule (every 15 minutes)
func (j *HistorySnapshotJob) Schedule() string {
	return "0 */15 * * * *"
}

// Run summarises every source
func (j *HistorySnapshotJob) Run(ctx context.Context) error {
	now := j.now()
	window := j.recentWindow()
	stuck := j.stuckAfter()

	for _, source := range j.store.Sources() {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats := history.Summarize(j.store.Snapshot(source), window, now)
		entry := j.logger.WithFields(map[string]interface{}{
			"source":               source,
			"samples":              stats.Samples,
			"consecutive_failures": stats.ConsecutiveFailures,
			"recent_failure_rate":  stats.RecentFailureRate,
			"trend":                stats.Trend,
		})

		// 연속 실패가 임계값 이상이거나 하락 추세면 경고
		if stats.ConsecutiveFailures >= stuck || stats.Trend == contracts.TrendDeclining {
			entry.Warn("Source health degraded")
			continue
		}
		entry.Debug("Source health")
	}
	return nil
}
