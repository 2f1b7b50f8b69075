package handlers

import (
	"net/http"

	"github.com/wonny/dqguard/internal/monitor"
	"github.com/wonny/dqguard/pkg/logger"
)

// MonitorHandler exposes the polling loop
type MonitorHandler struct {
	monitor *monitor.Monitor
	logger  *logger.Logger
}

// NewMonitorHandler creates a new monitor handler
func NewMonitorHandler(mon *monitor.Monitor, log *logger.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor: mon,
		logger:  log,
	}
}

// Status returns loop state and counters
// GET /api/monitor/status
func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.monitor.Status())
}

// Run triggers one tick synchronously
// POST /api/monitor/run
func (h *MonitorHandler) Run(w http.ResponseWriter, r *http.Request) {
	failed := h.monitor.RunOnce(r.Context())

	h.logger.WithField("failed", failed).Info("Manual monitor run completed")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"failed": failed,
		"status": h.monitor.Status(),
	})
}
