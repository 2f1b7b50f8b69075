package quality

import (
	"fmt"
	"time"

	"github.com/wonny/dqguard/internal/contracts"
)

// anomalyPenalty scales the anomaly score subtracted from the weighted sum
const anomalyPenalty = 0.1

// Canned recommendations per dimension
var recommendations = map[contracts.Dimension]string{
	contracts.DimensionCompleteness: "Backfill missing fields or request a complete snapshot from the source",
	contracts.DimensionAccuracy:     "Cross-check prices against a secondary source and drop rows that break price invariants",
	contracts.DimensionTimeliness:   "Check feed latency and switch to a fresher source if the delay persists",
	contracts.DimensionConsistency:  "Normalize symbol formats and resample timestamps to a regular interval",
	contracts.DimensionValidity:     "Reject out-of-range values and verify symbol formats",
	contracts.DimensionUniqueness:   "Deduplicate rows on symbol and timestamp before use",
}

const (
	anomalyRecommendation  = "Review statistical outliers before the batch reaches signal generation"
	criticalRecommendation = "Pause automated use of this data and escalate for human review"
)

// RecommendationFor returns the canned text for a dimension
func RecommendationFor(d contracts.Dimension) string {
	return recommendations[d]
}

// LevelFor classifies an overall score (inclusive lower bounds)
func LevelFor(score float64) contracts.QualityLevel {
	switch {
	case score >= 0.95:
		return contracts.QualityExcellent
	case score >= 0.85:
		return contracts.QualityGood
	case score >= 0.70:
		return contracts.QualityFair
	case score >= 0.50:
		return contracts.QualityPoor
	default:
		return contracts.QualityCritical
	}
}

// Aggregator turns dimension scores into a QualityReport
type Aggregator struct {
	config Config
}

// NewAggregator creates an aggregator
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{config: cfg}
}

// Overall computes Σ weight·score − anomaly·0.1 clamped to [0,1]
func (a *Aggregator) Overall(s Scores) float64 {
	total := 0.0
	for _, d := range contracts.DimensionOrder {
		total += a.config.Weights.of(d) * s.Dimensions[d]
	}
	return clamp01(total - s.Anomaly*anomalyPenalty)
}

// Aggregate builds the report
func (a *Aggregator) Aggregate(s Scores, info map[string]interface{}, ts time.Time) contracts.QualityReport {
	return a.build(a.Overall(s), s, info, ts)
}

func (a *Aggregator) build(overall float64, s Scores, info map[string]interface{}, ts time.Time) contracts.QualityReport {
	issues := a.issues(s, ts)

	dims := make(map[contracts.Dimension]float64, len(s.Dimensions))
	for d, v := range s.Dimensions {
		dims[d] = v
	}

	return contracts.QualityReport{
		OverallScore:    overall,
		Level:           LevelFor(overall),
		DimensionScores: dims,
		AnomalyScore:    s.Anomaly,
		Issues:          issues,
		Recommendations: recommendationsFor(issues),
		DataInfo:        info,
		Timestamp:       ts,
	}
}

// issues walks dimensions in fixed order; anomaly issue comes last
func (a *Aggregator) issues(s Scores, ts time.Time) []contracts.QualityIssue {
	issues := make([]contracts.QualityIssue, 0)

	for _, d := range contracts.DimensionOrder {
		score, ok := s.Dimensions[d]
		if !ok {
			continue
		}
		severity, cutoff, breached := classify(score, a.config.CutoffsFor(d))
		if !breached {
			continue
		}
		issues = append(issues, contracts.QualityIssue{
			Dimension:      d,
			Severity:       severity,
			Description:    fmt.Sprintf("%s score %.3f below %s threshold %.2f", d, score, severity, cutoff),
			Value:          score,
			Threshold:      cutoff,
			Recommendation: recommendations[d],
			Timestamp:      ts,
		})
	}

	if s.Anomaly > a.config.OutlierRatioThreshold {
		issues = append(issues, contracts.QualityIssue{
			Dimension:      contracts.DimensionValidity,
			Severity:       contracts.SeverityMedium,
			Description:    fmt.Sprintf("anomaly ratio %.3f above %.2f", s.Anomaly, a.config.OutlierRatioThreshold),
			Value:          s.Anomaly,
			Threshold:      a.config.OutlierRatioThreshold,
			Recommendation: anomalyRecommendation,
			Timestamp:      ts,
		})
	}

	return issues
}

// classify returns the most severe breached cutoff
func classify(score float64, c Cutoffs) (contracts.Severity, float64, bool) {
	switch {
	case score < c.Critical:
		return contracts.SeverityCritical, c.Critical, true
	case score < c.High:
		return contracts.SeverityHigh, c.High, true
	case score < c.Medium:
		return contracts.SeverityMedium, c.Medium, true
	case score < c.Low:
		return contracts.SeverityLow, c.Low, true
	default:
		return "", 0, false
	}
}

// recommendationsFor dedupes issue recommendations in issue order
func recommendationsFor(issues []contracts.QualityIssue) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(issues)+1)
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	critical := false
	for _, issue := range issues {
		add(issue.Recommendation)
		if issue.Severity == contracts.SeverityCritical {
			critical = true
		}
	}
	if critical {
		add(criticalRecommendation)
	}
	return out
}
