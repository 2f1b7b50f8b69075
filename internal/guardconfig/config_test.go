package guardconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dqguard/internal/risk"
)

const sampleYAML = `
thresholds:
  quality_critical: 0.5
  quality_high: 0.7
  quality_medium: 0.85
  consecutive_high: 2
  consecutive_critical: 4
  failure_rate_window: 10
  failure_rate_high: 0.5
  failure_rate_medium: 0.3
  recent_failure_window: 30m
  delay_medium: 5m
  delay_high: 10m
  delay_critical: 30m
quality:
  non_tabular_discount: 0.7
sources:
  - name: binance_btc_1m
    data_type: kline
    fetcher: http
    url: https://api.example.com/klines?symbol=BTCUSDT
    fallback: bybit_btc_1m
  - name: bybit_btc_1m
    data_type: kline
    fetcher: http
    url: https://api.example.org/klines
  - name: krx_quotes
    data_type: quote
    fetcher: html
    url: https://finance.example.com/quotes
    selector: table.type2
    enabled: false
`

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	s, raw, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	assert.Equal(t, 2, s.Thresholds.ConsecutiveHigh)
	assert.Equal(t, 30*time.Minute, s.Thresholds.RecentFailureWindow)
	assert.Equal(t, 5*time.Minute, s.Thresholds.DelayMedium)

	// 생략된 필드는 기본값 유지
	assert.Equal(t, 0.7, s.Quality.NonTabularDiscount)
	assert.Equal(t, 0.30, s.Quality.Weights.Accuracy)
	assert.Equal(t, 0.05, s.Quality.OutlierRatioThreshold)

	require.Len(t, s.Sources, 3)
	assert.Len(t, s.EnabledSources(), 2)
	assert.Equal(t, "bybit_btc_1m", s.Sources[0].Fallback)
}

func TestLoad_UnknownField(t *testing.T) {
	_, _, err := Load(writeTemp(t, "thresholds:\n  quality_critcal: 0.4\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality_critcal")
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidate_ThresholdErrorPassesThrough(t *testing.T) {
	s := Defaults()
	s.Thresholds.ConsecutiveHigh = 0

	var ce *risk.ConfigError
	require.ErrorAs(t, Validate(s), &ce)
	assert.Equal(t, "consecutive_high", ce.Field)
}

func TestValidate(t *testing.T) {
	valid := SourceConfig{Name: "a", DataType: "kline", Fetcher: FetcherHTTP, URL: "https://x.example/a"}

	tests := []struct {
		name   string
		mutate func(s *Settings)
		field  string
	}{
		{"weights", func(s *Settings) { s.Quality.Weights.Accuracy = 0.9 }, "quality"},
		{"missing name", func(s *Settings) { s.Sources = []SourceConfig{{Fetcher: FetcherHTTP, URL: valid.URL}} }, "sources[0].name"},
		{"duplicate", func(s *Settings) { s.Sources = []SourceConfig{valid, valid} }, "sources[1].name"},
		{"data type", func(s *Settings) {
			src := valid
			src.DataType = "orderbook"
			s.Sources = []SourceConfig{src}
		}, "sources[0].data_type"},
		{"fetcher", func(s *Settings) {
			src := valid
			src.Fetcher = "grpc"
			s.Sources = []SourceConfig{src}
		}, "sources[0].fetcher"},
		{"url", func(s *Settings) {
			src := valid
			src.URL = "/relative"
			s.Sources = []SourceConfig{src}
		}, "sources[0].url"},
		{"self fallback", func(s *Settings) {
			src := valid
			src.Fallback = "a"
			s.Sources = []SourceConfig{src}
		}, "sources[0].fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(s)

			var ve ValidationError
			require.ErrorAs(t, Validate(s), &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	s := Defaults()
	s.Sources = []SourceConfig{valid}
	assert.NoError(t, Validate(s))
}

func TestWarn(t *testing.T) {
	s := Defaults()
	codes := func() []string {
		var out []string
		for _, w := range Warn(s) {
			out = append(out, w.Code)
		}
		return out
	}
	assert.Equal(t, []string{"NO_SOURCES"}, codes())

	s.Sources = []SourceConfig{{Name: "h", Fetcher: FetcherHTML, URL: "https://x.example"}}
	assert.ElementsMatch(t, []string{"HTML_NO_SELECTOR", "NO_FALLBACK"}, codes())
}

func TestHash(t *testing.T) {
	a, err := Hash(Defaults())
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, _ := Hash(Defaults())
	assert.Equal(t, a, b)

	changed := Defaults()
	changed.Thresholds.ConsecutiveHigh = 4
	c, _ := Hash(changed)
	assert.NotEqual(t, a, c)
}

func TestMarshalRoundTrip(t *testing.T) {
	out, err := Marshal(Defaults())
	require.NoError(t, err)

	s, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, risk.DefaultThresholds(), s.Thresholds)
}
