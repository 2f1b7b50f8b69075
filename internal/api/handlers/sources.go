package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/dqguard/internal/audit"
	"github.com/wonny/dqguard/internal/engine"
	"github.com/wonny/dqguard/pkg/logger"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
	maxProfileDays      = 365
)

// SourceHandler serves statistics and per-source views
type SourceHandler struct {
	engine *engine.Engine
	audit  *audit.Repository // nil when persistence is off
	logger *logger.Logger
}

// NewSourceHandler creates a new source handler. repo may be nil.
func NewSourceHandler(eng *engine.Engine, repo *audit.Repository, log *logger.Logger) *SourceHandler {
	return &SourceHandler{
		engine: eng,
		audit:  repo,
		logger: log,
	}
}

// GetStatistics returns engine-wide counters
// GET /api/statistics
func (h *SourceHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.GetStatistics())
}

// ListSources returns sources with history and their fallbacks
// GET /api/sources
func (h *SourceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	type sourceInfo struct {
		Source   string `json:"source"`
		Samples  int    `json:"samples"`
		Fallback string `json:"fallback,omitempty"`
	}

	sources := h.engine.Sources()
	out := make([]sourceInfo, 0, len(sources))
	for _, s := range sources {
		fb, _ := h.engine.Fallback(s)
		out = append(out, sourceInfo{
			Source:   s,
			Samples:  h.engine.History().Len(s),
			Fallback: fb,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(out),
		"sources": out,
	})
}

// GetProfile returns the risk profile over ?days= (default 7)
// GET /api/sources/{source}/profile
func (h *SourceHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	source := mux.Vars(r)["source"]

	days, ok := intParam(r, "days", engine.DefaultProfileDays, maxProfileDays)
	if !ok {
		respondError(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}

	respondJSON(w, http.StatusOK, h.engine.GetSourceRiskProfile(source, days))
}

// GetHistory returns the newest in-memory history records
// GET /api/sources/{source}/history
func (h *SourceHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	source := mux.Vars(r)["source"]

	limit, ok := intParam(r, "limit", defaultHistoryLimit, maxHistoryLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	records := h.engine.History().RecentWindow(source, limit)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"source":  source,
		"count":   len(records),
		"records": records,
	})
}

// GetLatest returns the newest assessment for a source
// GET /api/sources/{source}/latest
func (h *SourceHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	source := mux.Vars(r)["source"]

	a, ok, err := h.engine.Latest(r.Context(), source)
	if err != nil {
		h.logger.WithError(err).WithField("source", source).Error("Failed to read latest assessment")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest assessment")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "No assessment for source "+source)
		return
	}

	respondJSON(w, http.StatusOK, a)
}

// GetAudit returns persisted assessments, newest first
// GET /api/sources/{source}/audit
func (h *SourceHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondError(w, http.StatusServiceUnavailable, "Audit persistence is disabled")
		return
	}

	source := mux.Vars(r)["source"]
	limit, ok := intParam(r, "limit", defaultHistoryLimit, maxHistoryLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	entries, err := h.audit.ListBySource(r.Context(), source, limit)
	if err != nil {
		h.logger.WithError(err).WithField("source", source).Error("Failed to list audit entries")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve audit entries")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"source":  source,
		"count":   len(entries),
		"entries": entries,
	})
}
