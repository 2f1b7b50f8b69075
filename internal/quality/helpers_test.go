package quality

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func klineRow(o, h, l, c float64) map[string]interface{} {
	return map[string]interface{}{"open": o, "high": h, "low": l, "close": c}
}

// smoothKline builds n clean bars with constant volume. Bars listed in
// broken get high below the body.
func smoothKline(n int, broken ...int) []map[string]interface{} {
	bad := make(map[int]bool, len(broken))
	for _, i := range broken {
		bad[i] = true
	}

	rows := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)*0.1
		o := c - 0.05
		h := c + 0.5
		l := o - 0.5
		if bad[i] {
			h = o - 0.2
		}
		row := klineRow(o, h, l, c)
		row["volume"] = 1000.0
		rows[i] = row
	}
	return rows
}

func mustBatch(t *testing.T, data interface{}) *Batch {
	t.Helper()
	in, err := Normalize(data)
	require.NoError(t, err)
	require.Equal(t, ShapeTabular, in.Shape)
	return in.Batch
}
