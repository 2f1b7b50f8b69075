package quality

import (
	"fmt"
	"time"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/pkg/logger"
)

// NeutralDefaults are used when a dimension fails to compute
var NeutralDefaults = map[contracts.Dimension]float64{
	contracts.DimensionCompleteness: 0.5,
	contracts.DimensionAccuracy:     0.5,
	contracts.DimensionTimeliness:   neutralTimeliness,
	contracts.DimensionConsistency:  0.5,
	contracts.DimensionValidity:     0.5,
	contracts.DimensionUniqueness:   1.0,
}

// neutralAnomaly is the anomaly score used when detection fails
const neutralAnomaly = 0.0

// EvalContext carries per-call inputs that are not part of the batch
type EvalContext struct {
	Now       time.Time
	Timestamp *time.Time // explicit data timestamp, overrides columns
}

// Scores are raw dimension scores plus the anomaly score
type Scores struct {
	Dimensions map[contracts.Dimension]float64
	Anomaly    float64
	Fallbacks  []contracts.Dimension // dimensions that fell back to neutral
}

// Evaluator computes dimension scores for one batch
// ⭐ SSOT: 차원별 점수 계산은 여기서만
type Evaluator struct {
	registry Registry
	logger   *logger.Logger
}

// NewEvaluator creates an evaluator over the given strategy table
func NewEvaluator(registry Registry, log *logger.Logger) *Evaluator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Evaluator{
		registry: registry,
		logger:   log.Module("quality"),
	}
}

// Evaluate scores a non-empty batch. Each dimension is computed in
// isolation; a panic or error there yields its neutral default.
func (e *Evaluator) Evaluate(b *Batch, dataType DataType, ectx EvalContext) Scores {
	v := e.registry.Resolve(dataType)
	if ectx.Now.IsZero() {
		ectx.Now = time.Now()
	}

	scores := Scores{Dimensions: make(map[contracts.Dimension]float64, len(contracts.DimensionOrder))}

	steps := []struct {
		dim contracts.Dimension
		fn  func() (float64, error)
	}{
		{contracts.DimensionCompleteness, func() (float64, error) { return completeness(b) }},
		{contracts.DimensionAccuracy, func() (float64, error) { return v.Accuracy(b) }},
		{contracts.DimensionTimeliness, func() (float64, error) { return timeliness(b, ectx.Timestamp, ectx.Now) }},
		{contracts.DimensionConsistency, func() (float64, error) { return consistency(b) }},
		{contracts.DimensionValidity, func() (float64, error) { return v.Validity(b) }},
		{contracts.DimensionUniqueness, func() (float64, error) { return uniqueness(b) }},
	}

	for _, step := range steps {
		score, err := guard(step.fn)
		if err != nil {
			e.logger.WithFields(map[string]interface{}{
				"dimension": step.dim,
				"data_type": v.DataType(),
				"error":     err.Error(),
			}).Warn("Dimension evaluation failed, using neutral default")
			score = NeutralDefaults[step.dim]
			scores.Fallbacks = append(scores.Fallbacks, step.dim)
		}
		scores.Dimensions[step.dim] = clamp01(score)
	}

	anomaly, err := guard(func() (float64, error) { return anomalyScore(b, v) })
	if err != nil {
		e.logger.WithFields(map[string]interface{}{
			"dimension": "anomaly",
			"data_type": v.DataType(),
			"error":     err.Error(),
		}).Warn("Anomaly detection failed, using neutral default")
		anomaly = neutralAnomaly
	}
	scores.Anomaly = anomaly

	return scores
}

// guard runs fn and converts a panic into an error
func guard(fn func() (float64, error)) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
