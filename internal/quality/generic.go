package quality

import "math"

const genericColumnPenalty = 0.9

// GenericValidator applies type-agnostic sanity checks
type GenericValidator struct{}

func (GenericValidator) DataType() DataType { return DataTypeGeneric }

// Accuracy starts at 1.0 and multiplies by 0.9 per offending numeric column:
// a column offends if it holds ±Inf, or a negative value in a volume/amount
// style column
func (GenericValidator) Accuracy(b *Batch) (float64, error) {
	score := 1.0
	for _, col := range b.NumericColumns() {
		flow := isFlowColumn(col)
		for _, v := range b.ColumnFloats(col) {
			if math.IsInf(v, 0) || (flow && v < 0) {
				score *= genericColumnPenalty
				break
			}
		}
	}
	return score, nil
}

func (GenericValidator) Validity(*Batch) (float64, error) { return 1.0, nil }

func (GenericValidator) ExtraAnomalies(*Batch) (int, error) { return 0, nil }
