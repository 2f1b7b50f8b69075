package quality

// Validator holds the type-specific parts of scoring.
// Shared dimensions (completeness, consistency, timeliness, uniqueness, IQR
// anomalies) live in dimensions.go.
type Validator interface {
	DataType() DataType

	// Accuracy scores internal correctness of values
	Accuracy(b *Batch) (float64, error)

	// Validity scores bound and format checks
	Validity(b *Batch) (float64, error)

	// ExtraAnomalies counts type-specific anomalies on top of IQR outliers
	ExtraAnomalies(b *Batch) (int, error)
}

// Registry is the strategy table keyed by DataType
type Registry map[DataType]Validator

// DefaultRegistry returns kline, quote and generic validators
func DefaultRegistry() Registry {
	r := Registry{}
	for _, v := range []Validator{KlineValidator{}, QuoteValidator{}, GenericValidator{}} {
		r[v.DataType()] = v
	}
	return r
}

// Resolve returns the validator for t, falling back to generic
func (r Registry) Resolve(t DataType) Validator {
	if v, ok := r[t]; ok {
		return v
	}
	if v, ok := r[DataTypeGeneric]; ok {
		return v
	}
	return GenericValidator{}
}

// ratio returns 1 - bad/checked, or 1 when nothing was checked
func ratio(bad, checked int) float64 {
	if checked == 0 {
		return 1.0
	}
	return clamp01(1 - float64(bad)/float64(checked))
}
