package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/dqguard/internal/alert"
	"github.com/wonny/dqguard/internal/api/handlers"
	"github.com/wonny/dqguard/internal/metrics"
	"github.com/wonny/dqguard/pkg/logger"
)

// HealthCheck is one dependency probe reported by /health
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handlers groups everything the router serves. Monitor, Hub, Metrics
// and Checks are optional.
type Handlers struct {
	Assess     *handlers.AssessHandler
	Sources    *handlers.SourceHandler
	Thresholds *handlers.ThresholdsHandler
	Monitor    *handlers.MonitorHandler
	Hub        *alert.Hub
	Metrics    *metrics.Metrics
	Checks     []HealthCheck
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(h.Checks)).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Assessment endpoints
	api.HandleFunc("/assess", h.Assess.Assess).Methods("POST")
	api.HandleFunc("/statistics", h.Sources.GetStatistics).Methods("GET")

	// Source endpoints
	api.HandleFunc("/sources", h.Sources.ListSources).Methods("GET")
	api.HandleFunc("/sources/{source}/profile", h.Sources.GetProfile).Methods("GET")
	api.HandleFunc("/sources/{source}/history", h.Sources.GetHistory).Methods("GET")
	api.HandleFunc("/sources/{source}/latest", h.Sources.GetLatest).Methods("GET")
	api.HandleFunc("/sources/{source}/audit", h.Sources.GetAudit).Methods("GET")

	// Threshold endpoints
	api.HandleFunc("/thresholds", h.Thresholds.Get).Methods("GET")
	api.HandleFunc("/thresholds", h.Thresholds.Put).Methods("PUT")

	// Monitor endpoints
	if h.Monitor != nil {
		api.HandleFunc("/monitor/status", h.Monitor.Status).Methods("GET")
		api.HandleFunc("/monitor/run", h.Monitor.Run).Methods("POST")
	}

	// Live push
	if h.Hub != nil {
		r.HandleFunc("/ws/assessments", h.Hub.ServeWS).Methods("GET")
	}

	// Prometheus
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler()).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	if h.Metrics != nil {
		r.Use(metricsMiddleware(h.Metrics))
	}

	return r
}

// healthCheckHandler returns server health status; any failed check
// turns the response into 503
func healthCheckHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		results := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				results[c.Name] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			results[c.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  status,
			"service": "dqguard",
			"checks":  results,
		})
	}
}

// statusRecorder captures the response status for logging/metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the writer
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack is required for the websocket upgrade
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// metricsMiddleware records request count and latency per route template
func metricsMiddleware(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.ObserveHTTP(r.Method, route, rec.status, time.Since(start))
		})
	}
}
