package risk

import (
	"fmt"
	"time"

	"github.com/wonny/dqguard/internal/contracts"
)

// MitigationInput is everything the generator looks at
type MitigationInput struct {
	Report            contracts.QualityReport
	Action            contracts.RiskAction
	Consecutive       int
	RecentFailureRate float64
	Delay             time.Duration
	NetworkIssues     bool
	HighLoad          bool
	Trend             contracts.Trend
	Thresholds        Thresholds
}

// Mitigation holds ordered risk factors and deduplicated strategies
type Mitigation struct {
	RiskFactors []string
	Strategies  []string
}

// Action-specific strategies
var actionStrategies = map[contracts.RiskAction]string{
	contracts.ActionBlock:    "Block automated trading on this source until quality recovers",
	contracts.ActionFallback: "Switch to the registered fallback source",
	contracts.ActionThrottle: "Reduce polling and trading frequency for this source",
	contracts.ActionWarning:  "Proceed with reduced position sizes and watch the next assessments",
}

const (
	strategyOutage    = "Investigate the source for a persistent outage"
	strategyLatency   = "Check feed latency and switch to a fresher source if the delay persists"
	strategyNetwork   = "Verify network connectivity and retry with backoff"
	strategyHighLoad  = "Shed non-critical workloads before re-assessing"
	strategyDeclining = "Review the source's recent quality decline with the data owner"
)

// Mitigate builds risk factors and mitigation strategies. Output depends
// only on the input.
func Mitigate(in MitigationInput) Mitigation {
	t := in.Thresholds
	factors := make([]string, 0, len(in.Report.Issues)+4)
	strategies := newOrderedSet()

	// 품질 점수
	q := in.Report.OverallScore
	switch {
	case q < t.QualityCritical:
		factors = append(factors, fmt.Sprintf("critical data quality: score %.3f below %.2f", q, t.QualityCritical))
	case q < t.QualityHigh:
		factors = append(factors, fmt.Sprintf("poor data quality: score %.3f below %.2f", q, t.QualityHigh))
	case q < t.QualityMedium:
		factors = append(factors, fmt.Sprintf("degraded data quality: score %.3f below %.2f", q, t.QualityMedium))
	}

	for _, issue := range in.Report.Issues {
		factors = append(factors, fmt.Sprintf("%s %s issue: %s", issue.Severity, issue.Dimension, issue.Description))
		strategies.add(issue.Recommendation)
	}

	// 연속 실패
	switch {
	case in.Consecutive >= t.ConsecutiveCritical:
		factors = append(factors, fmt.Sprintf("%d consecutive failed assessments (critical at %d)", in.Consecutive, t.ConsecutiveCritical))
		strategies.add(strategyOutage)
	case in.Consecutive >= t.ConsecutiveHigh:
		factors = append(factors, fmt.Sprintf("%d consecutive failed assessments (high at %d)", in.Consecutive, t.ConsecutiveHigh))
		strategies.add(strategyOutage)
	}

	// 최근 실패율
	switch {
	case in.RecentFailureRate >= t.FailureRateHigh && in.RecentFailureRate > 0:
		factors = append(factors, fmt.Sprintf("high recent failure rate %.0f%%", in.RecentFailureRate*100))
	case in.RecentFailureRate >= t.FailureRateMedium && in.RecentFailureRate > 0:
		factors = append(factors, fmt.Sprintf("elevated recent failure rate %.0f%%", in.RecentFailureRate*100))
	}

	// 데이터 지연
	switch {
	case in.Delay >= t.DelayCritical:
		factors = append(factors, fmt.Sprintf("critical data delay %s", in.Delay.Round(time.Second)))
		strategies.add(strategyLatency)
	case in.Delay >= t.DelayHigh:
		factors = append(factors, fmt.Sprintf("high data delay %s", in.Delay.Round(time.Second)))
		strategies.add(strategyLatency)
	case in.Delay > t.DelayMedium:
		factors = append(factors, fmt.Sprintf("data delay %s", in.Delay.Round(time.Second)))
		strategies.add(strategyLatency)
	}

	if in.NetworkIssues {
		factors = append(factors, "network issues reported")
		strategies.add(strategyNetwork)
	}
	if in.HighLoad {
		factors = append(factors, "system under high load")
		strategies.add(strategyHighLoad)
	}
	if in.Trend == contracts.TrendDeclining {
		factors = append(factors, "quality trend declining")
		strategies.add(strategyDeclining)
	}

	strategies.add(actionStrategies[in.Action])

	return Mitigation{
		RiskFactors: factors,
		Strategies:  strategies.items,
	}
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: make([]string, 0)}
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
