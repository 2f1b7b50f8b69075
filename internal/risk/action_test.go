package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/dqguard/internal/contracts"
)

func TestRecommendAction(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name        string
		level       contracts.RiskLevel
		consecutive int
		fallback    bool
		want        contracts.RiskAction
	}{
		{"critical without fallback", contracts.RiskCritical, 0, false, contracts.ActionBlock},
		{"critical with fallback", contracts.RiskCritical, 0, true, contracts.ActionFallback},
		{"high persistent without fallback", contracts.RiskHigh, 3, false, contracts.ActionThrottle},
		{"high persistent with fallback", contracts.RiskHigh, 5, true, contracts.ActionFallback},
		{"high transient", contracts.RiskHigh, 2, true, contracts.ActionWarning},
		{"medium", contracts.RiskMedium, 10, true, contracts.ActionWarning},
		{"low", contracts.RiskLow, 10, false, contracts.ActionContinue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendAction(tt.level, tt.consecutive, tt.fallback, th))
		})
	}
}

func TestRecommendAction_ConsecutiveHighIsConfigurable(t *testing.T) {
	th := DefaultThresholds()
	th.ConsecutiveHigh = 1

	assert.Equal(t, contracts.ActionThrottle, RecommendAction(contracts.RiskHigh, 1, false, th))
}
