package jobs

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/internal/engine"
	"github.com/wonny/dqguard/internal/history"
	"github.com/wonny/dqguard/pkg/logger"
	"github.com/wonny/dqguard/pkg/redis"
)

type fakePruner struct {
	cutoff time.Time
	n      int64
	err    error
}

func (p *fakePruner) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.n, p.err
}

func TestAuditPruneJob(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 15, 0, 0, time.UTC)
	p := &fakePruner{n: 3}
	job := NewAuditPruneJob(p, 30, logger.NewNop())
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.AddDate(0, 0, -30), p.cutoff)

	p.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))

	disabled := NewAuditPruneJob(&fakePruner{err: errors.New("never called")}, 0, logger.NewNop())
	assert.NoError(t, disabled.Run(context.Background()))
}

type staticStats engine.Statistics

func (s staticStats) GetStatistics() engine.Statistics { return engine.Statistics(s) }

func TestStatisticsReportJob(t *testing.T) {
	var buf bytes.Buffer
	job := NewStatisticsReportJob(staticStats{TotalAssessments: 7, BlockRate: 0.25}, nil, logger.NewWithWriter(&buf))

	require.NoError(t, job.Run(context.Background()))
	assert.Contains(t, buf.String(), `"total":7`)

	// Redis 비활성 캐시는 no-op
	cache := redis.NewCache(redis.NewFromRedis(nil), "test")
	job = NewStatisticsReportJob(staticStats{}, cache, logger.NewNop())
	assert.NoError(t, job.Run(context.Background()))
}

func TestHistorySnapshotJob(t *testing.T) {
	now := time.Now()
	store := history.NewStore(10)
	for i := 0; i < 3; i++ {
		store.Append("broken", contracts.HistoryRecord{
			Timestamp: now.Add(time.Duration(i) * time.Minute),
			RiskLevel: contracts.RiskCritical,
		})
	}
	store.Append("healthy", contracts.HistoryRecord{Timestamp: now, RiskLevel: contracts.RiskLow, QualityScore: 0.97})

	var buf bytes.Buffer
	job := NewHistorySnapshotJob(store,
		func() time.Duration { return time.Hour },
		func() int { return 3 },
		logger.NewWithWriter(&buf),
	)

	require.NoError(t, job.Run(context.Background()))
	out := buf.String()
	assert.Contains(t, out, `"source":"broken"`)
	assert.Contains(t, out, "Source health degraded")
	assert.Contains(t, out, `"source":"healthy"`)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Source health degraded")))
}
