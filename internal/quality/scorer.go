package quality

import (
	"errors"
	"fmt"
	"time"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/pkg/logger"
)

// Scorer normalizes raw input and produces a QualityReport
// ⭐ SSOT: raw data → QualityReport 변환은 여기서만
type Scorer struct {
	config     Config
	evaluator  *Evaluator
	aggregator *Aggregator
}

// NewScorer creates a scorer. registry may be nil for the default table.
func NewScorer(cfg Config, registry Registry, log *logger.Logger) *Scorer {
	return &Scorer{
		config:     cfg,
		evaluator:  NewEvaluator(registry, log),
		aggregator: NewAggregator(cfg),
	}
}

// Config returns the aggregation config in use
func (s *Scorer) Config() Config {
	return s.config
}

// Report scores data. Input errors (ErrEmptyBatch, ErrMalformedBatch) yield
// a critical report together with the wrapped error.
func (s *Scorer) Report(data interface{}, dataType DataType, ectx EvalContext) (contracts.QualityReport, error) {
	if ectx.Now.IsZero() {
		ectx.Now = time.Now()
	}

	in, err := Normalize(data)
	if err != nil {
		return s.CriticalReport(err, dataType, ectx.Now), fmt.Errorf("normalize %s batch: %w", dataType, err)
	}

	if in.Shape != ShapeTabular {
		return s.reducedReport(in, dataType, ectx.Now), nil
	}

	scores := s.evaluator.Evaluate(in.Batch, dataType, ectx)
	info := map[string]interface{}{
		"shape":     string(in.Shape),
		"data_type": string(dataType),
		"rows":      in.Batch.Len(),
		"columns":   len(in.Batch.Columns),
	}
	if len(scores.Fallbacks) > 0 {
		info["neutral_dimensions"] = scores.Fallbacks
	}
	return s.aggregator.Aggregate(scores, info, ectx.Now), nil
}

// reducedReport scores flat maps and scalar lists on completeness only,
// discounted by NonTabularDiscount
func (s *Scorer) reducedReport(in *Input, dataType DataType, now time.Time) contracts.QualityReport {
	present := 0
	for _, v := range in.Values {
		if !isMissing(v) {
			present++
		}
	}
	c := 0.0
	if len(in.Values) > 0 {
		c = float64(present) / float64(len(in.Values))
	}

	scores := Scores{Dimensions: map[contracts.Dimension]float64{
		contracts.DimensionCompleteness: c,
	}}
	info := map[string]interface{}{
		"shape":     string(in.Shape),
		"data_type": string(dataType),
		"values":    len(in.Values),
		"discount":  s.config.NonTabularDiscount,
	}
	return s.aggregator.build(clamp01(c*s.config.NonTabularDiscount), scores, info, now)
}

// CriticalReport is the report for data that could not be scored at all
func (s *Scorer) CriticalReport(cause error, dataType DataType, now time.Time) contracts.QualityReport {
	desc := "batch could not be parsed"
	if errors.Is(cause, ErrEmptyBatch) {
		desc = "batch is empty"
	}
	if cause != nil {
		desc = fmt.Sprintf("%s: %v", desc, cause)
	}

	dims := make(map[contracts.Dimension]float64, len(contracts.DimensionOrder))
	for _, d := range contracts.DimensionOrder {
		dims[d] = 0
	}

	issues := []contracts.QualityIssue{{
		Dimension:      contracts.DimensionCompleteness,
		Severity:       contracts.SeverityCritical,
		Description:    desc,
		Value:          0,
		Threshold:      s.config.CutoffsFor(contracts.DimensionCompleteness).Critical,
		Recommendation: recommendations[contracts.DimensionCompleteness],
		Timestamp:      now,
	}}

	return contracts.QualityReport{
		OverallScore:    0,
		Level:           contracts.QualityCritical,
		DimensionScores: dims,
		AnomalyScore:    0,
		Issues:          issues,
		Recommendations: recommendationsFor(issues),
		DataInfo: map[string]interface{}{
			"data_type": string(dataType),
			"error":     desc,
		},
		Timestamp: now,
	}
}
