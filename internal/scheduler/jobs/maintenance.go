package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/dqguard/pkg/logger"
)

// Pruner deletes audit rows older than a cutoff
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditPruneJob enforces the audit retention window
type AuditPruneJob struct {
	pruner    Pruner
	retention time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewAuditPruneJob creates a new audit prune job
func NewAuditPruneJob(pruner Pruner, retentionDays int, log *logger.Logger) *AuditPruneJob {
	return &AuditPruneJob{
		pruner:    pruner,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    log,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *AuditPruneJob) Name() string {
	return "audit_prune"
}

// Schedule returns the cron schedule (daily 03:15)
func (j *AuditPruneJob) Schedule() string {
	return "0 15 3 * * *"
}

// Run deletes expired audit rows
func (j *AuditPruneJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	removed, err := j.pruner.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune audit: %w", err)
	}

	if removed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": removed,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Audit prune completed")
	}
	return nil
}
