package quality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKlineValidator_Accuracy(t *testing.T) {
	v := KlineValidator{}

	tests := []struct {
		name string
		rows []map[string]interface{}
		want float64
	}{
		{"valid bar", []map[string]interface{}{klineRow(6, 10, 5, 8)}, 1.0},
		{"high below close", []map[string]interface{}{klineRow(6, 7, 5, 8)}, 0.0},
		{"half broken", []map[string]interface{}{klineRow(6, 10, 5, 8), klineRow(6, 7, 5, 8)}, 0.5},
		{"low above open", []map[string]interface{}{klineRow(6, 10, 6.5, 8)}, 0.0},
		{"non-positive price", []map[string]interface{}{klineRow(0, 10, 5, 8)}, 0.0},
		{"incomplete rows skipped", []map[string]interface{}{{"open": 6.0, "close": 8.0}}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Accuracy(mustBatch(t, tt.rows))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestKlineValidator_Validity(t *testing.T) {
	v := KlineValidator{}

	got, err := v.Validity(mustBatch(t, []map[string]interface{}{
		klineRow(6, 10, 5, 8),
		klineRow(9000, 12000, 8000, 9500), // high out of range
	}))
	require.NoError(t, err)
	assert.InDelta(t, 7.0/8.0, got, 1e-9)
}

func TestKlineValidator_ExtraAnomalies(t *testing.T) {
	v := KlineValidator{}

	t.Run("price jump", func(t *testing.T) {
		b := mustBatch(t, []map[string]interface{}{
			{"close": 100.0}, {"close": 130.0}, {"close": 131.0},
		})
		n, err := v.ExtraAnomalies(b)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("volume spike needs full window", func(t *testing.T) {
		rows := make([]map[string]interface{}, 20)
		for i := range rows {
			rows[i] = map[string]interface{}{"close": 100.0, "volume": 100.0}
		}
		rows[19]["volume"] = 10000.0

		n, err := v.ExtraAnomalies(mustBatch(t, rows))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = v.ExtraAnomalies(mustBatch(t, rows[1:]))
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestQuoteValidator(t *testing.T) {
	v := QuoteValidator{}
	b := mustBatch(t, []map[string]interface{}{
		{"symbol": "600000.SH", "price": 10.5, "change_pct": 1.2},
		{"symbol": "00700.HK", "price": 320.0, "change_pct": -25.0},
		{"symbol": "AAPL.US", "price": -1.0, "change_pct": 0.0},
		{"symbol": "aapl", "price": 190.0, "change_pct": 0.5},
	})

	acc, err := v.Accuracy(b)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, acc, 1e-9)

	validity, err := v.Validity(b)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, validity, 1e-9)
}

func TestQuoteValidator_PctChangeAlias(t *testing.T) {
	acc, err := QuoteValidator{}.Accuracy(mustBatch(t, []map[string]interface{}{
		{"price": 10.0, "pct_change": 21.0},
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, acc)
}

func TestValidSymbol(t *testing.T) {
	for _, s := range []string{"600000.SH", "000001.SZ", "430047.BJ", "700.HK", "00700.HK", "MSFT.US", " AAPL.US "} {
		assert.True(t, ValidSymbol(s), s)
	}
	for _, s := range []string{"60000.SH", "600000.sh", "123456.HK", "AAPLXY.US", "005930", ""} {
		assert.False(t, ValidSymbol(s), s)
	}
}

func TestGenericValidator_Accuracy(t *testing.T) {
	b := mustBatch(t, []map[string]interface{}{
		{"volume": -5.0, "spread": math.Inf(1), "ratio": -0.3},
		{"volume": 10.0, "spread": 0.1, "ratio": 0.4},
	})

	acc, err := GenericValidator{}.Accuracy(b)
	require.NoError(t, err)
	assert.InDelta(t, 0.81, acc, 1e-9)

	validity, err := GenericValidator{}.Validity(b)
	require.NoError(t, err)
	assert.Equal(t, 1.0, validity)
}

func TestRegistry_ResolveFallsBackToGeneric(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, DataTypeKline, r.Resolve(DataTypeKline).DataType())
	assert.Equal(t, DataTypeGeneric, r.Resolve(DataType("fundamentals")).DataType())
	assert.Equal(t, DataTypeGeneric, Registry{}.Resolve(DataTypeQuote).DataType())
}
