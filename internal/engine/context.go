package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"

	"github.com/wonny/dqguard/internal/quality"
)

// maxDelaySeconds is the largest delay a time.Duration can hold
const maxDelaySeconds = float64(math.MaxInt64 / int64(time.Second))

// AssessContext carries per-call information that is not in the batch
type AssessContext struct {
	Timestamp         *time.Time    // data timestamp, overrides batch columns
	DataDelay         time.Duration // observed feed delay
	NetworkIssues     bool
	HighLoad          bool
	FallbackAvailable bool
}

// ContextFromMap converts a loose map (JSON bodies, scripts) into an
// AssessContext. Keys: timestamp, data_delay (seconds), network_issues,
// high_load, fallback_available. Unknown keys are ignored.
func ContextFromMap(m map[string]interface{}) (AssessContext, error) {
	var actx AssessContext
	if len(m) == 0 {
		return actx, nil
	}

	if v, ok := m["timestamp"]; ok && v != nil {
		ts, ok := quality.ParseTime(v)
		if !ok {
			return actx, fmt.Errorf("context.timestamp: cannot parse %v", v)
		}
		actx.Timestamp = &ts
	}

	if v, ok := m["data_delay"]; ok && v != nil {
		secs, err := cast.ToFloat64E(v)
		if err != nil {
			return actx, fmt.Errorf("context.data_delay: %w", err)
		}
		if math.IsNaN(secs) {
			return actx, fmt.Errorf("context.data_delay: not a number")
		}
		if secs < 0 {
			return actx, fmt.Errorf("context.data_delay: must be >= 0")
		}
		actx.DataDelay = delayFromSeconds(secs)
	}

	flags := []struct {
		key string
		dst *bool
	}{
		{"network_issues", &actx.NetworkIssues},
		{"high_load", &actx.HighLoad},
		{"fallback_available", &actx.FallbackAvailable},
	}
	for _, f := range flags {
		v, ok := m[f.key]
		if !ok || v == nil {
			continue
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			return actx, fmt.Errorf("context.%s: %w", f.key, err)
		}
		*f.dst = b
	}

	return actx, nil
}

// delayFromSeconds saturates at the largest Duration instead of wrapping
func delayFromSeconds(secs float64) time.Duration {
	if secs >= maxDelaySeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(secs * float64(time.Second))
}

// delay returns the explicit delay, else the age of the context timestamp
func (c AssessContext) delay(now time.Time) time.Duration {
	if c.DataDelay > 0 {
		return c.DataDelay
	}
	if c.Timestamp != nil && !c.Timestamp.IsZero() {
		if d := now.Sub(*c.Timestamp); d > 0 {
			return d
		}
	}
	return 0
}
