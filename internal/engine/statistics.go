package engine

import (
	"sync"
	"time"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/internal/history"
)

// DefaultProfileDays is used when a profile request gives no window
const DefaultProfileDays = 7

// Statistics summarises every assessment since process start
type Statistics struct {
	TotalAssessments int64                           `json:"total_assessments"`
	PerLevelCounts   map[contracts.RiskLevel]int64   `json:"per_level_counts"`
	PerLevelRates    map[contracts.RiskLevel]float64 `json:"per_level_rates"`
	PerActionCounts  map[contracts.RiskAction]int64  `json:"per_action_counts"`
	BlockRate        float64                         `json:"block_rate"`
	FallbackRate     float64                         `json:"fallback_rate"`
	Sources          int                             `json:"sources"`
}

// SourceRiskProfile summarises one source over a day window
type SourceRiskProfile struct {
	Source              string                      `json:"source"`
	Days                int                         `json:"days"`
	Samples             int                         `json:"samples"`
	RiskDistribution    map[contracts.RiskLevel]int `json:"risk_distribution"`
	AverageRiskScore    float64                     `json:"average_risk_score"`
	AverageQualityScore float64                     `json:"average_quality_score"`
	Trend               contracts.Trend             `json:"trend"`
	ConsecutiveFailures int                         `json:"consecutive_failures"`
	RecentFailureRate   float64                     `json:"recent_failure_rate"`
	LastAssessment      *time.Time                  `json:"last_assessment,omitempty"`
}

type counters struct {
	mu       sync.Mutex
	total    int64
	byLevel  map[contracts.RiskLevel]int64
	byAction map[contracts.RiskAction]int64
}

func newCounters() *counters {
	return &counters{
		byLevel:  make(map[contracts.RiskLevel]int64),
		byAction: make(map[contracts.RiskAction]int64),
	}
}

func (c *counters) record(a contracts.RiskAssessment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	c.byLevel[a.RiskLevel]++
	c.byAction[a.RecommendedAction]++
}

// GetStatistics returns engine-wide counters and rates
func (e *Engine) GetStatistics() Statistics {
	c := e.stats
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Statistics{
		TotalAssessments: c.total,
		PerLevelCounts:   make(map[contracts.RiskLevel]int64, len(contracts.AllRiskLevels)),
		PerLevelRates:    make(map[contracts.RiskLevel]float64, len(contracts.AllRiskLevels)),
		PerActionCounts:  make(map[contracts.RiskAction]int64, len(c.byAction)),
		Sources:          len(e.history.Sources()),
	}
	for _, l := range contracts.AllRiskLevels {
		s.PerLevelCounts[l] = c.byLevel[l]
		s.PerLevelRates[l] = rate(c.byLevel[l], c.total)
	}
	for a, n := range c.byAction {
		s.PerActionCounts[a] = n
	}
	s.BlockRate = rate(c.byAction[contracts.ActionBlock], c.total)
	s.FallbackRate = rate(c.byAction[contracts.ActionFallback], c.total)
	return s
}

func rate(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// GetSourceRiskProfile summarises the last days of a source's history.
// days <= 0 uses DefaultProfileDays.
func (e *Engine) GetSourceRiskProfile(source string, days int) SourceRiskProfile {
	if days <= 0 {
		days = DefaultProfileDays
	}
	now := e.now()
	th := e.thresholds.Load()

	all := e.history.Snapshot(source)
	records := history.Since(all, now.Add(-time.Duration(days)*24*time.Hour))

	p := SourceRiskProfile{
		Source:              source,
		Days:                days,
		Samples:             len(records),
		RiskDistribution:    make(map[contracts.RiskLevel]int, len(contracts.AllRiskLevels)),
		Trend:               history.TrendOf(records),
		ConsecutiveFailures: history.ConsecutiveFailures(all),
		RecentFailureRate:   history.FailureRate(history.Since(all, now.Add(-th.RecentFailureWindow))),
	}
	for _, l := range contracts.AllRiskLevels {
		p.RiskDistribution[l] = 0
	}

	if len(records) == 0 {
		return p
	}

	var riskSum, qualitySum float64
	for _, r := range records {
		p.RiskDistribution[r.RiskLevel]++
		riskSum += r.RiskScore
		qualitySum += r.QualityScore
	}
	p.AverageRiskScore = riskSum / float64(len(records))
	p.AverageQualityScore = qualitySum / float64(len(records))

	last := records[len(records)-1].Timestamp
	p.LastAssessment = &last
	return p
}
