package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dqguard/internal/alert"
	"github.com/wonny/dqguard/internal/api/handlers"
	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/internal/engine"
	"github.com/wonny/dqguard/internal/metrics"
	"github.com/wonny/dqguard/internal/monitor"
	"github.com/wonny/dqguard/pkg/logger"
)

type fixture struct {
	engine  *engine.Engine
	hub     *alert.Hub
	metrics *metrics.Metrics
	router  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()

	m := metrics.New()
	opts := engine.DefaultOptions()
	opts.Observer = m
	eng, err := engine.New(opts, log)
	require.NoError(t, err)

	hub := alert.NewHub(log)
	eng.Dispatcher().Register(hub)
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(func() {
		eng.Close()
		hub.Close()
	})

	mon := monitor.New(monitor.Config{Interval: time.Hour, Workers: 1, FetchTimeout: time.Second}, eng, m, log)
	mon.AddSource(monitor.Source{
		Name:     "polled",
		DataType: "quote",
		Fetcher: monitor.FetcherFunc(func(context.Context) (interface{}, error) {
			return []map[string]interface{}{{"symbol": "BTCUSDT", "bid": 100.0, "ask": 100.5}}, nil
		}),
	})

	router := NewRouter(Handlers{
		Assess:     handlers.NewAssessHandler(eng, log),
		Sources:    handlers.NewSourceHandler(eng, nil, log),
		Thresholds: handlers.NewThresholdsHandler(eng, log),
		Monitor:    handlers.NewMonitorHandler(mon, log),
		Hub:        hub,
		Metrics:    m,
	}, log)

	return &fixture{engine: eng, hub: hub, metrics: m, router: router}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func klineRows(n int) []map[string]interface{} {
	rows := make([]map[string]interface{}, n)
	for i := range rows {
		c := 100 + float64(i)*0.1
		rows[i] = map[string]interface{}{"open": c - 0.05, "high": c + 0.5, "low": c - 0.55, "close": c, "volume": 1000.0}
	}
	return rows
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealth_Degraded(t *testing.T) {
	router := NewRouter(Handlers{
		Checks: []HealthCheck{
			{Name: "redis", Check: func(context.Context) error { return nil }},
			{Name: "postgres", Check: func(context.Context) error { return errors.New("connection refused") }},
		},
	}, logger.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"connection refused"`)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)
}

func TestAssess(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/api/assess", handlers.AssessRequest{Source: "feedK", DataType: "kline", Data: klineRows(50)})
	require.Equal(t, http.StatusOK, rec.Code)
	var a contracts.RiskAssessment
	decode(t, rec, &a)
	assert.Equal(t, "feedK", a.Source)
	assert.Equal(t, contracts.RiskLow, a.RiskLevel)

	rec = f.do(t, "POST", "/api/assess", map[string]interface{}{
		"source":  "feedE",
		"data":    []interface{}{},
		"context": map[string]interface{}{"fallback_available": true},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &a)
	assert.Equal(t, contracts.RiskCritical, a.RiskLevel)
	assert.Equal(t, contracts.ActionFallback, a.RecommendedAction)
}

func TestAssess_BadRequest(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, "POST", "/api/assess", "{not json").Code)

	rec := f.do(t, "POST", "/api/assess", map[string]interface{}{
		"source":  "s",
		"data":    klineRows(3),
		"context": map[string]interface{}{"data_delay": -5},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "data_delay")
}

func TestSourceEndpoints(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.engine.Assess(context.Background(), klineRows(20), "feedK", "kline", engine.AssessContext{})
	}
	f.engine.RegisterFallback("feedK", "feedB")

	rec := f.do(t, "GET", "/api/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fallback":"feedB"`)
	assert.Contains(t, rec.Body.String(), `"samples":3`)

	rec = f.do(t, "GET", "/api/sources/feedK/history?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		Count int `json:"count"`
	}
	decode(t, rec, &hist)
	assert.Equal(t, 2, hist.Count)

	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/api/sources/feedK/history?limit=abc", nil).Code)

	rec = f.do(t, "GET", "/api/sources/feedK/profile?days=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile engine.SourceRiskProfile
	decode(t, rec, &profile)
	assert.Equal(t, 1, profile.Days)
	assert.Equal(t, 3, profile.Samples)

	assert.Equal(t, http.StatusOK, f.do(t, "GET", "/api/sources/feedK/latest", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", "/api/sources/nobody/latest", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, "GET", "/api/sources/feedK/audit", nil).Code)

	rec = f.do(t, "GET", "/api/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats engine.Statistics
	decode(t, rec, &stats)
	assert.Equal(t, int64(3), stats.TotalAssessments)
}

func TestThresholds(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/api/thresholds", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dto handlers.ThresholdsDTO
	decode(t, rec, &dto)
	assert.Equal(t, 300.0, dto.DelayMedium)

	rec = f.do(t, "PUT", "/api/thresholds", map[string]interface{}{"consecutive_high": 2, "delay_medium_seconds": 120})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, f.engine.Thresholds().ConsecutiveHigh)
	assert.Equal(t, 2*time.Minute, f.engine.Thresholds().DelayMedium)

	rec = f.do(t, "PUT", "/api/thresholds", map[string]interface{}{"consecutive_critical": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"consecutive_critical"`)
	assert.Equal(t, 5, f.engine.Thresholds().ConsecutiveCritical)
}

func TestMonitorEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/api/monitor/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed":0`)
	assert.Equal(t, 1, f.engine.History().Len("polled"))

	rec = f.do(t, "GET", "/api/monitor/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st monitor.Status
	decode(t, rec, &st)
	assert.Equal(t, monitor.StateStopped, st.State)
	assert.Equal(t, int64(1), st.Ticks)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, "GET", "/api/sources/feedK/profile", nil)

	rec := f.do(t, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/sources/{source}/profile"`)
}

func TestWebsocketPush(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/assessments?source=feedW"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	f.engine.Assess(context.Background(), klineRows(10), "other", "kline", engine.AssessContext{})
	f.engine.Assess(context.Background(), klineRows(10), "feedW", "kline", engine.AssessContext{})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var a contracts.RiskAssessment
	require.NoError(t, json.Unmarshal(msg, &a))
	assert.Equal(t, "feedW", a.Source)
}
