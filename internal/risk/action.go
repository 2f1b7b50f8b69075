package risk

import "github.com/wonny/dqguard/internal/contracts"

// RecommendAction picks the action for a risk level. Stateless; the caller
// supplies the consecutive failure count and fallback availability.
func RecommendAction(level contracts.RiskLevel, consecutive int, fallbackAvailable bool, t Thresholds) contracts.RiskAction {
	switch level {
	case contracts.RiskCritical:
		if fallbackAvailable {
			return contracts.ActionFallback
		}
		return contracts.ActionBlock
	case contracts.RiskHigh:
		if consecutive >= t.ConsecutiveHigh {
			if fallbackAvailable {
				return contracts.ActionFallback
			}
			return contracts.ActionThrottle
		}
		return contracts.ActionWarning
	case contracts.RiskMedium:
		return contracts.ActionWarning
	default:
		return contracts.ActionContinue
	}
}
