package quality

import "math"

const (
	klineMaxPrice         = 10000.0
	klineMaxPctChange     = 0.20
	klineVolumeSpikeRatio = 5.0
	klineVolumeWindow     = 20
)

// KlineValidator checks OHLC bars
type KlineValidator struct{}

func (KlineValidator) DataType() DataType { return DataTypeKline }

// Accuracy counts OHLC invariant violations over rows with all four prices
func (KlineValidator) Accuracy(b *Batch) (float64, error) {
	checked, violations := 0, 0
	for i := range b.Rows {
		bar, ok := ohlcAt(b, i)
		if !ok {
			continue
		}
		checked++
		if bar.violates() {
			violations++
		}
	}
	return ratio(violations, checked), nil
}

// Validity requires every present price in (0, 10000]
func (KlineValidator) Validity(b *Batch) (float64, error) {
	checked, invalid := 0, 0
	for i := range b.Rows {
		for _, col := range priceColumns {
			if !b.Present(i, col) {
				continue
			}
			checked++
			f, ok := b.Float(i, col)
			if !ok || f <= 0 || f > klineMaxPrice || math.IsInf(f, 0) {
				invalid++
			}
		}
	}
	return ratio(invalid, checked), nil
}

// ExtraAnomalies counts close-to-close jumps above 20% and volume spikes
// above 5x the trailing 20-bar mean
func (KlineValidator) ExtraAnomalies(b *Batch) (int, error) {
	count := 0

	if b.Has("close") {
		prev, havePrev := 0.0, false
		for i := range b.Rows {
			c, ok := b.Float(i, "close")
			if !ok {
				continue
			}
			if havePrev && prev != 0 && math.Abs(c/prev-1) > klineMaxPctChange {
				count++
			}
			prev, havePrev = c, true
		}
	}

	if b.Has("volume") {
		vols := b.ColumnFloats("volume")
		for i := klineVolumeWindow - 1; i < len(vols); i++ {
			window := vols[i-klineVolumeWindow+1 : i+1]
			m := mean(window)
			if m > 0 && vols[i] > klineVolumeSpikeRatio*m {
				count++
			}
		}
	}

	return count, nil
}

type ohlc struct {
	open, high, low, close float64
}

func ohlcAt(b *Batch, row int) (ohlc, bool) {
	var vals [4]float64
	for j, col := range priceColumns {
		f, ok := b.Float(row, col)
		if !ok {
			return ohlc{}, false
		}
		vals[j] = f
	}
	return ohlc{open: vals[0], high: vals[1], low: vals[2], close: vals[3]}, true
}

func (o ohlc) violates() bool {
	if o.open <= 0 || o.high <= 0 || o.low <= 0 || o.close <= 0 {
		return true
	}
	if o.high < math.Max(o.open, o.close) {
		return true
	}
	return o.low > math.Min(o.open, o.close)
}
