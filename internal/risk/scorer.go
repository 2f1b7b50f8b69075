package risk

import (
	"math"
	"time"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/internal/history"
)

// Score weights
const (
	failureRateWeight    = 0.3
	consecutiveStep      = 0.1
	consecutiveCap       = 0.5
	delayWeight          = 0.2
	criticalIssuePenalty = 0.15
)

// Score converts a quality report plus the source's history snapshot into
// a risk score in [0, 1]. records must be chronological.
// ⭐ SSOT: 리스크 점수 공식은 여기서만
func Score(report contracts.QualityReport, records []contracts.HistoryRecord, delay time.Duration, t Thresholds) float64 {
	base := 1 - report.OverallScore

	base += history.FailureRate(history.Last(records, t.FailureRateWindow)) * failureRateWeight
	base += math.Min(float64(history.ConsecutiveFailures(records))*consecutiveStep, consecutiveCap)

	if delay > t.DelayMedium && t.DelayCritical > 0 {
		base += math.Min(float64(delay)/float64(t.DelayCritical), 1.0) * delayWeight
	}

	base += criticalIssuePenalty * float64(report.CriticalIssueCount())

	return clamp01(base)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
