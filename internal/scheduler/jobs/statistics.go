package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/dqguard/internal/engine"
	"github.com/wonny/dqguard/pkg/logger"
	"github.com/wonny/dqguard/pkg/redis"
)

// StatisticsSource provides the engine-wide statistics
type StatisticsSource interface {
	GetStatistics() engine.Statistics
}

// StatisticsReportJob logs engine statistics and publishes them to Redis
type StatisticsReportJob struct {
	source StatisticsSource
	cache  *redis.Cache
	logger *logger.Logger
}

// NewStatisticsReportJob creates a new statistics report job. cache may be nil.
func NewStatisticsReportJob(source StatisticsSource, cache *redis.Cache, log *logger.Logger) *StatisticsReportJob {
	return &StatisticsReportJob{
		source: source,
		cache:  cache,
		logger: log,
	}
}

// Name returns the job name
func (j *StatisticsReportJob) Name() string {
	return "statistics_report"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *StatisticsReportJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run logs and publishes a statistics snapshot
func (j *StatisticsReportJob) Run(ctx context.Context) error {
	stats := j.source.GetStatistics()

	j.logger.WithFields(map[string]interface{}{
		"total":         stats.TotalAssessments,
		"sources":       stats.Sources,
		"block_rate":    stats.BlockRate,
		"fallback_rate": stats.FallbackRate,
	}).Info("Assessment statistics")

	if j.cache == nil {
		return nil
	}
	if err := j.cache.Set(ctx, redis.StatisticsKey(), stats, redis.TTLMedium); err != nil {
		return fmt.Errorf("publish statistics: %w", err)
	}
	return nil
}
