package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholds(t *testing.T) {
	d := DefaultThresholds()
	require.NoError(t, d.Validate())

	assert.Equal(t, 3, d.ConsecutiveHigh)
	assert.Equal(t, 10, d.FailureRateWindow)
	assert.Equal(t, time.Hour, d.RecentFailureWindow)
	assert.Equal(t, 1800*time.Second, d.DelayCritical)
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Thresholds)
		field  string
	}{
		{"quality out of range", func(t *Thresholds) { t.QualityMedium = 1.2 }, "quality_medium"},
		{"quality order", func(t *Thresholds) { t.QualityCritical = 0.9 }, "quality"},
		{"consecutive high zero", func(t *Thresholds) { t.ConsecutiveHigh = 0 }, "consecutive_high"},
		{"consecutive order", func(t *Thresholds) { t.ConsecutiveCritical = 2 }, "consecutive_critical"},
		{"window", func(t *Thresholds) { t.FailureRateWindow = 0 }, "failure_rate_window"},
		{"rate order", func(t *Thresholds) { t.FailureRateMedium = 0.6 }, "failure_rate_medium"},
		{"recent window", func(t *Thresholds) { t.RecentFailureWindow = 0 }, "recent_failure_window"},
		{"delay zero", func(t *Thresholds) { t.DelayMedium = 0 }, "delay_medium"},
		{"delay order", func(t *Thresholds) { t.DelayHigh = time.Hour }, "delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)

			err := th.Validate()
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
