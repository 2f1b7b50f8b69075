package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteness(t *testing.T) {
	b := mustBatch(t, []map[string]interface{}{
		{"a": 1.0, "b": nil},
		{"a": "NaN", "b": 2.0},
	})

	got, err := completeness(b)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-9)

	got, err = completeness(&Batch{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestCompleteness_CountsAbsentKeys(t *testing.T) {
	b := mustBatch(t, []map[string]interface{}{
		{"a": 1.0, "b": 2.0},
		{"a": 1.0},
	})

	got, err := completeness(b)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-9)
}

func TestConsistency(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	at := func(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

	tests := []struct {
		name string
		rows []map[string]interface{}
		want float64
	}{
		{
			name: "regular",
			rows: []map[string]interface{}{
				{"symbol": "AAPL.US", "timestamp": at(0)},
				{"symbol": "MSFT.US", "timestamp": at(60)},
				{"symbol": "NVDA.US", "timestamp": at(120)},
				{"symbol": "AMZN.US", "timestamp": at(180)},
			},
			want: 1.0,
		},
		{
			name: "ragged symbols",
			rows: []map[string]interface{}{
				{"symbol": "A"}, {"symbol": "ABCDEFGHIJ"}, {"symbol": "AB"}, {"symbol": "ABCDEFGHIJKL"},
			},
			want: 0.9,
		},
		{
			name: "irregular intervals",
			rows: []map[string]interface{}{
				{"timestamp": at(0)}, {"timestamp": at(1)}, {"timestamp": at(2)}, {"timestamp": at(100)},
			},
			want: 0.8,
		},
		{
			name: "both",
			rows: []map[string]interface{}{
				{"symbol": "A", "timestamp": at(0)},
				{"symbol": "ABCDEFGHIJ", "timestamp": at(1)},
				{"symbol": "AB", "timestamp": at(2)},
				{"symbol": "ABCDEFGHIJKL", "timestamp": at(100)},
			},
			want: 0.7,
		},
		{
			name: "compact daily dates across a month end",
			rows: []map[string]interface{}{
				{"date": "20240129"}, {"date": "20240130"}, {"date": "20240131"},
				{"date": "20240201"}, {"date": "20240202"}, {"date": 20240203},
			},
			want: 1.0,
		},
		{
			name: "two timestamps are not enough",
			rows: []map[string]interface{}{
				{"timestamp": at(0)}, {"timestamp": at(500)},
			},
			want: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := consistency(mustBatch(t, tt.rows))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTimelinessForDelay(t *testing.T) {
	tests := []struct {
		delay time.Duration
		want  float64
	}{
		{-5 * time.Second, 1.0},
		{0, 1.0},
		{30 * time.Second, 1.0},
		{31 * time.Second, 0.9},
		{120 * time.Second, 0.9},
		{300 * time.Second, 0.7},
		{600 * time.Second, 0.5},
		{601 * time.Second, 0.2},
		{2 * time.Hour, 0.2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TimelinessForDelay(tt.delay), tt.delay.String())
	}
}

func TestTimeliness_NonIncreasingInDelay(t *testing.T) {
	prev := TimelinessForDelay(0)
	for d := time.Duration(0); d <= time.Hour; d += 7 * time.Second {
		cur := TimelinessForDelay(d)
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestTimeliness(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("no timestamp information", func(t *testing.T) {
		got, err := timeliness(mustBatch(t, []map[string]interface{}{{"close": 1.0}}), nil, now)
		require.NoError(t, err)
		assert.Equal(t, 0.8, got)
	})

	t.Run("latest across columns", func(t *testing.T) {
		b := mustBatch(t, []map[string]interface{}{
			{"date": now.Add(-time.Hour), "timestamp": now.Add(-60 * time.Second).UnixMilli()},
			{"date": now.Add(-2 * time.Hour), "timestamp": now.Add(-90 * time.Second).UnixMilli()},
		})
		got, err := timeliness(b, nil, now)
		require.NoError(t, err)
		assert.Equal(t, 0.9, got)
	})

	t.Run("explicit timestamp wins", func(t *testing.T) {
		explicit := now.Add(-10 * time.Second)
		b := mustBatch(t, []map[string]interface{}{{"timestamp": now.Add(-time.Hour)}})
		got, err := timeliness(b, &explicit, now)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got)
	})

	t.Run("future counts as fresh", func(t *testing.T) {
		b := mustBatch(t, []map[string]interface{}{{"timestamp": now.Add(time.Minute)}})
		got, err := timeliness(b, nil, now)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got)
	})
}

func TestUniqueness(t *testing.T) {
	t.Run("symbol and timestamp key", func(t *testing.T) {
		b := mustBatch(t, []map[string]interface{}{
			{"symbol": "AAPL.US", "timestamp": 1700000000, "close": 1.0},
			{"symbol": "AAPL.US", "timestamp": 1700000000, "close": 2.0},
			{"symbol": "AAPL.US", "timestamp": 1700000060, "close": 1.0},
			{"symbol": "MSFT.US", "timestamp": 1700000000, "close": 1.0},
		})
		got, err := uniqueness(b)
		require.NoError(t, err)
		assert.InDelta(t, 0.75, got, 1e-9)
	})

	t.Run("row fingerprint", func(t *testing.T) {
		b := mustBatch(t, []map[string]interface{}{
			{"close": 1.0, "open": 2.0},
			{"close": 1.0, "open": 2.0},
			{"close": 1.0, "open": 3.0},
			{"close": 1.0, "open": 2.0},
		})
		got, err := uniqueness(b)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, got, 1e-9)
	})
}

func TestAnomalyScore(t *testing.T) {
	rows := make([]map[string]interface{}, 10)
	for i := range rows {
		rows[i] = map[string]interface{}{"symbol": "AAPL.US", "value": 1.0}
	}
	rows[9]["value"] = 100.0

	got, err := anomalyScore(mustBatch(t, rows), GenericValidator{})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got, 1e-9)

	got, err = anomalyScore(mustBatch(t, []map[string]interface{}{{"symbol": "AAPL.US"}}), GenericValidator{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestAnomalyScore_CleanKline(t *testing.T) {
	got, err := anomalyScore(mustBatch(t, smoothKline(100, 10, 50, 90)), KlineValidator{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}
