package risk

import (
	"fmt"
	"time"
)

// ConfigError reports an invalid threshold value
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid risk threshold %s: %s", e.Field, e.Message)
}

// Thresholds drive risk scoring, classification and mitigation text.
// Replaced as a whole value; never mutated in place.
type Thresholds struct {
	// Quality cutoffs on the overall score
	QualityCritical float64 `yaml:"quality_critical" json:"quality_critical"`
	QualityHigh     float64 `yaml:"quality_high" json:"quality_high"`
	QualityMedium   float64 `yaml:"quality_medium" json:"quality_medium"`

	// Consecutive HIGH/CRITICAL assessments
	ConsecutiveHigh     int `yaml:"consecutive_high" json:"consecutive_high"`
	ConsecutiveCritical int `yaml:"consecutive_critical" json:"consecutive_critical"`

	// Failure rate over the newest FailureRateWindow records
	FailureRateWindow int     `yaml:"failure_rate_window" json:"failure_rate_window"`
	FailureRateHigh   float64 `yaml:"failure_rate_high" json:"failure_rate_high"`
	FailureRateMedium float64 `yaml:"failure_rate_medium" json:"failure_rate_medium"`

	// 최근 실패율 집계 구간 (프로파일/리스크 요인)
	RecentFailureWindow time.Duration `yaml:"recent_failure_window" json:"recent_failure_window"`

	// Data delay
	DelayMedium   time.Duration `yaml:"delay_medium" json:"delay_medium"`
	DelayHigh     time.Duration `yaml:"delay_high" json:"delay_high"`
	DelayCritical time.Duration `yaml:"delay_critical" json:"delay_critical"`
}

// DefaultThresholds returns the production defaults
// ⭐ SSOT: 리스크 임계값 기본값은 여기서만
func DefaultThresholds() Thresholds {
	return Thresholds{
		QualityCritical:     0.50,
		QualityHigh:         0.70,
		QualityMedium:       0.85,
		ConsecutiveHigh:     3,
		ConsecutiveCritical: 5,
		FailureRateWindow:   10,
		FailureRateHigh:     0.5,
		FailureRateMedium:   0.3,
		RecentFailureWindow: time.Hour,
		DelayMedium:         300 * time.Second,
		DelayHigh:           600 * time.Second,
		DelayCritical:       1800 * time.Second,
	}
}

// Validate returns a *ConfigError for the first invalid field
func (t Thresholds) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"quality_critical", t.QualityCritical},
		{"quality_high", t.QualityHigh},
		{"quality_medium", t.QualityMedium},
		{"failure_rate_high", t.FailureRateHigh},
		{"failure_rate_medium", t.FailureRateMedium},
	} {
		if f.value < 0 || f.value > 1 {
			return &ConfigError{Field: f.name, Message: "must be in [0, 1]"}
		}
	}

	if !(t.QualityCritical <= t.QualityHigh && t.QualityHigh <= t.QualityMedium) {
		return &ConfigError{Field: "quality", Message: "must satisfy critical <= high <= medium"}
	}
	if t.ConsecutiveHigh < 1 {
		return &ConfigError{Field: "consecutive_high", Message: "must be >= 1"}
	}
	if t.ConsecutiveCritical < t.ConsecutiveHigh {
		return &ConfigError{Field: "consecutive_critical", Message: "must be >= consecutive_high"}
	}
	if t.FailureRateWindow < 1 {
		return &ConfigError{Field: "failure_rate_window", Message: "must be >= 1"}
	}
	if t.FailureRateMedium > t.FailureRateHigh {
		return &ConfigError{Field: "failure_rate_medium", Message: "must be <= failure_rate_high"}
	}
	if t.RecentFailureWindow <= 0 {
		return &ConfigError{Field: "recent_failure_window", Message: "must be > 0"}
	}
	if t.DelayMedium <= 0 {
		return &ConfigError{Field: "delay_medium", Message: "must be > 0"}
	}
	if !(t.DelayMedium <= t.DelayHigh && t.DelayHigh <= t.DelayCritical) {
		return &ConfigError{Field: "delay", Message: "must satisfy medium <= high <= critical"}
	}
	return nil
}
