package contracts

import "time"

// =============================================================================
// Risk Assessment
// =============================================================================

// RiskLevel 리스크 등급 (LOW < MEDIUM < HIGH < CRITICAL)
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// AllRiskLevels lists levels in ascending order
var AllRiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// Rank returns the total order position (0 for unknown)
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// IsFailure reports HIGH or CRITICAL
func (l RiskLevel) IsFailure() bool {
	return l == RiskHigh || l == RiskCritical
}

// RiskAction 권장 조치
type RiskAction string

const (
	ActionContinue RiskAction = "CONTINUE" // 정상 사용
	ActionWarning  RiskAction = "WARNING"  // 경고 후 사용
	ActionThrottle RiskAction = "THROTTLE" // 사용 빈도 축소
	ActionFallback RiskAction = "FALLBACK" // 대체 소스로 전환
	ActionBlock    RiskAction = "BLOCK"    // 사용 차단
)

// Trend 소스 품질 추세
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// HistoryRecord is one stored assessment outcome for a source
type HistoryRecord struct {
	Timestamp         time.Time  `json:"timestamp"`
	RiskLevel         RiskLevel  `json:"risk_level"`
	RiskScore         float64    `json:"risk_score"`
	QualityScore      float64    `json:"quality_score"`
	RecommendedAction RiskAction `json:"recommended_action"`
}

// HistoryStats summarises the history snapshot an assessment was computed from
type HistoryStats struct {
	Samples             int     `json:"samples"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	RecentFailureRate   float64 `json:"recent_failure_rate"`
	Trend               Trend   `json:"trend"`
}

// RiskAssessment is the immutable output of one assess call
// ⭐ SSOT: 트레이딩 컨트롤러는 RecommendedAction만 보고 분기
type RiskAssessment struct {
	Source               string        `json:"source"`
	DataType             string        `json:"data_type"`
	RiskLevel            RiskLevel     `json:"risk_level"`
	RiskScore            float64       `json:"risk_score"` // 0.0 ~ 1.0
	RecommendedAction    RiskAction    `json:"recommended_action"`
	QualityReport        QualityReport `json:"quality_report"`
	RiskFactors          []string      `json:"risk_factors"`
	MitigationStrategies []string      `json:"mitigation_strategies"`
	History              HistoryStats  `json:"history"`
	Timestamp            time.Time     `json:"timestamp"`
}

// Record projects the assessment onto its history entry
func (a *RiskAssessment) Record() HistoryRecord {
	return HistoryRecord{
		Timestamp:         a.Timestamp,
		RiskLevel:         a.RiskLevel,
		RiskScore:         a.RiskScore,
		QualityScore:      a.QualityReport.OverallScore,
		RecommendedAction: a.RecommendedAction,
	}
}

// AllowsTrading reports whether downstream order placement may proceed
func (a *RiskAssessment) AllowsTrading() bool {
	return a.RecommendedAction == ActionContinue || a.RecommendedAction == ActionWarning
}
