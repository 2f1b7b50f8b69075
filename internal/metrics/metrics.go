package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/dqguard/internal/alert"
	"github.com/wonny/dqguard/internal/contracts"
)

const namespace = "dqguard"

// Metrics holds all Prometheus collectors on a private registry
// ⭐ SSOT: 메트릭 이름/라벨 정의는 여기서만
type Metrics struct {
	registry *prometheus.Registry

	assessmentsTotal   *prometheus.CounterVec
	assessDuration     prometheus.Histogram
	riskScore          *prometheus.HistogramVec
	qualityScore       *prometheus.GaugeVec
	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	fetchFailuresTotal *prometheus.CounterVec
	tickDuration       prometheus.Histogram
}

// New creates and registers all collectors, including Go runtime and
// process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		assessmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assessments_total",
				Help:      "Total number of risk assessments",
			},
			[]string{"source", "risk_level", "action"},
		),
		assessDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "assess_duration_seconds",
				Help:      "Time spent scoring one batch",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),
		riskScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "risk_score",
				Help:      "Distribution of risk scores",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"data_type"},
		),
		qualityScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "quality_score",
				Help:      "Latest overall quality score per source",
			},
			[]string{"source"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		fetchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "monitor_fetch_failures_total",
				Help:      "Total number of failed source fetches",
			},
			[]string{"source"},
		),
		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "monitor_tick_duration_seconds",
				Help:      "Duration of one monitor tick across all sources",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.assessmentsTotal,
		m.assessDuration,
		m.riskScore,
		m.qualityScore,
		m.httpRequestsTotal,
		m.httpDuration,
		m.fetchFailuresTotal,
		m.tickDuration,
	)

	return m
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAssessment records one assessment
func (m *Metrics) ObserveAssessment(a contracts.RiskAssessment, elapsed time.Duration) {
	m.assessmentsTotal.WithLabelValues(a.Source, string(a.RiskLevel), string(a.RecommendedAction)).Inc()
	m.assessDuration.Observe(elapsed.Seconds())
	m.riskScore.WithLabelValues(a.DataType).Observe(a.RiskScore)
	m.qualityScore.WithLabelValues(a.Source).Set(a.QualityReport.OverallScore)
}

// ObserveHTTP records one HTTP request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// FetchFailed counts a failed source fetch
func (m *Metrics) FetchFailed(source string) {
	m.fetchFailuresTotal.WithLabelValues(source).Inc()
}

// ObserveTick records one monitor tick
func (m *Metrics) ObserveTick(elapsed time.Duration) {
	m.tickDuration.Observe(elapsed.Seconds())
}

// RegisterDispatcher exports the dispatcher's delivery counters
func (m *Metrics) RegisterDispatcher(d *alert.Dispatcher) {
	counter := func(name, help string, read func(alert.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: namespace, Subsystem: "dispatch", Name: name, Help: help},
			func() float64 { return float64(read(d.Stats())) },
		)
	}

	m.registry.MustRegister(
		counter("enqueued_total", "Assessments queued for delivery", func(s alert.Stats) int64 { return s.Dispatched }),
		counter("delivered_total", "Successful sink deliveries", func(s alert.Stats) int64 { return s.Delivered }),
		counter("failed_total", "Failed or panicking sink deliveries", func(s alert.Stats) int64 { return s.Failed }),
		counter("dropped_total", "Assessments dropped on a full queue", func(s alert.Stats) int64 { return s.Dropped }),
	)
}

// RegisterHub exports the websocket subscriber count
func (m *Metrics) RegisterHub(h *alert.Hub) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket subscribers",
		},
		func() float64 { return float64(h.ClientCount()) },
	))
}
