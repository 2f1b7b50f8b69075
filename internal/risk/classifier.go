package risk

import "github.com/wonny/dqguard/internal/contracts"

// Risk score cutoffs
const (
	ScoreCritical = 0.8
	ScoreHigh     = 0.6
	ScoreMedium   = 0.4
)

// Classify maps a risk score and quality level to a RiskLevel; the first
// matching rule wins
func Classify(score float64, level contracts.QualityLevel) contracts.RiskLevel {
	switch {
	case score >= ScoreCritical || level == contracts.QualityCritical:
		return contracts.RiskCritical
	case score >= ScoreHigh || level == contracts.QualityPoor:
		return contracts.RiskHigh
	case score >= ScoreMedium || level == contracts.QualityFair:
		return contracts.RiskMedium
	default:
		return contracts.RiskLow
	}
}
