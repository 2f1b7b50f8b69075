package contracts

import "time"

// =============================================================================
// Quality Report
// =============================================================================

// Dimension 품질 차원
type Dimension string

const (
	DimensionCompleteness Dimension = "completeness"
	DimensionAccuracy     Dimension = "accuracy"
	DimensionTimeliness   Dimension = "timeliness"
	DimensionConsistency  Dimension = "consistency"
	DimensionValidity     Dimension = "validity"
	DimensionUniqueness   Dimension = "uniqueness"
)

// DimensionOrder is the fixed evaluation order; issues follow it
// ⭐ SSOT: 이슈 정렬 순서는 여기서만 정의
var DimensionOrder = []Dimension{
	DimensionCompleteness,
	DimensionAccuracy,
	DimensionTimeliness,
	DimensionConsistency,
	DimensionValidity,
	DimensionUniqueness,
}

// Severity 이슈 심각도
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// QualityLevel 품질 등급
type QualityLevel string

const (
	QualityExcellent QualityLevel = "excellent"
	QualityGood      QualityLevel = "good"
	QualityFair      QualityLevel = "fair"
	QualityPoor      QualityLevel = "poor"
	QualityCritical  QualityLevel = "critical"
)

// QualityIssue is one finding against a dimension
type QualityIssue struct {
	Dimension      Dimension `json:"dimension"`
	Severity       Severity  `json:"severity"`
	Description    string    `json:"description"`
	Value          float64   `json:"value"`
	Threshold      float64   `json:"threshold"`
	Recommendation string    `json:"recommendation"`
	Timestamp      time.Time `json:"timestamp"`
}

// QualityReport is the result of scoring one data batch.
// Built once per evaluation and never mutated afterwards.
type QualityReport struct {
	OverallScore    float64                `json:"overall_score"` // 0.0 ~ 1.0
	Level           QualityLevel           `json:"level"`
	DimensionScores map[Dimension]float64  `json:"dimension_scores"`
	AnomalyScore    float64                `json:"anomaly_score"`
	Issues          []QualityIssue         `json:"issues"`
	Recommendations []string               `json:"recommendations"`
	DataInfo        map[string]interface{} `json:"data_info"`
	Timestamp       time.Time              `json:"timestamp"`
}

// CriticalIssueCount counts issues with critical severity
func (r *QualityReport) CriticalIssueCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// IsUsable mirrors the downstream gate: fair or better
func (r *QualityReport) IsUsable() bool {
	return r.OverallScore >= 0.7
}
