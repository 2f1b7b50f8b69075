package quality

import (
	"fmt"
	"math"

	"github.com/wonny/dqguard/internal/contracts"
)

// Weights of the five primary dimensions in the overall score.
// Uniqueness is reported and issue-checked but not weighted.
type Weights struct {
	Completeness float64 `yaml:"completeness" json:"completeness"`
	Accuracy     float64 `yaml:"accuracy" json:"accuracy"`
	Consistency  float64 `yaml:"consistency" json:"consistency"`
	Timeliness   float64 `yaml:"timeliness" json:"timeliness"`
	Validity     float64 `yaml:"validity" json:"validity"`
}

// DefaultWeights is the canonical weighting
// ⭐ SSOT: 가중치 변경 시 aggregator_test 고정값도 함께 변경
func DefaultWeights() Weights {
	return Weights{
		Completeness: 0.25,
		Accuracy:     0.30,
		Consistency:  0.20,
		Timeliness:   0.15,
		Validity:     0.10,
	}
}

func (w Weights) of(d contracts.Dimension) float64 {
	switch d {
	case contracts.DimensionCompleteness:
		return w.Completeness
	case contracts.DimensionAccuracy:
		return w.Accuracy
	case contracts.DimensionConsistency:
		return w.Consistency
	case contracts.DimensionTimeliness:
		return w.Timeliness
	case contracts.DimensionValidity:
		return w.Validity
	default:
		return 0
	}
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	return w.Completeness + w.Accuracy + w.Consistency + w.Timeliness + w.Validity
}

// Cutoffs are per-severity lower bounds; a score below a cutoff emits an
// issue of that severity (most severe wins)
type Cutoffs struct {
	Critical float64 `yaml:"critical" json:"critical"`
	High     float64 `yaml:"high" json:"high"`
	Medium   float64 `yaml:"medium" json:"medium"`
	Low      float64 `yaml:"low" json:"low"`
}

// DefaultCutoffs applies to every dimension without an override
func DefaultCutoffs() Cutoffs {
	return Cutoffs{Critical: 0.50, High: 0.70, Medium: 0.85, Low: 0.95}
}

// Config controls aggregation
type Config struct {
	Weights               Weights                         `yaml:"weights" json:"weights"`
	Cutoffs               map[contracts.Dimension]Cutoffs `yaml:"cutoffs" json:"cutoffs"`
	OutlierRatioThreshold float64                         `yaml:"outlier_ratio_threshold" json:"outlier_ratio_threshold"`
	NonTabularDiscount    float64                         `yaml:"non_tabular_discount" json:"non_tabular_discount"`
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Weights:               DefaultWeights(),
		Cutoffs:               map[contracts.Dimension]Cutoffs{},
		OutlierRatioThreshold: 0.05,
		NonTabularDiscount:    0.8,
	}
}

// CutoffsFor returns the override for d or the defaults
func (c Config) CutoffsFor(d contracts.Dimension) Cutoffs {
	if co, ok := c.Cutoffs[d]; ok {
		return co
	}
	return DefaultCutoffs()
}

// Validate checks weights and cutoffs
func (c Config) Validate() error {
	ws := []float64{c.Weights.Completeness, c.Weights.Accuracy, c.Weights.Consistency, c.Weights.Timeliness, c.Weights.Validity}
	for _, w := range ws {
		if w < 0 || w > 1 {
			return fmt.Errorf("quality.weights: each weight must be in [0, 1]")
		}
	}
	if math.Abs(c.Weights.Sum()-1.0) > 1e-6 {
		return fmt.Errorf("quality.weights: sum must be 1.0, got %.6f", c.Weights.Sum())
	}
	for d, co := range c.Cutoffs {
		if !(co.Critical <= co.High && co.High <= co.Medium && co.Medium <= co.Low) {
			return fmt.Errorf("quality.cutoffs.%s: must satisfy critical <= high <= medium <= low", d)
		}
		if co.Critical < 0 || co.Low > 1 {
			return fmt.Errorf("quality.cutoffs.%s: must be within [0, 1]", d)
		}
	}
	if c.OutlierRatioThreshold <= 0 || c.OutlierRatioThreshold > 1 {
		return fmt.Errorf("quality.outlier_ratio_threshold: must be in (0, 1]")
	}
	if c.NonTabularDiscount <= 0 || c.NonTabularDiscount > 1 {
		return fmt.Errorf("quality.non_tabular_discount: must be in (0, 1]")
	}
	return nil
}
