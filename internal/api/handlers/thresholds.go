package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wonny/dqguard/internal/engine"
	"github.com/wonny/dqguard/internal/risk"
	"github.com/wonny/dqguard/pkg/logger"
)

// ThresholdsDTO is risk.Thresholds with durations in seconds
type ThresholdsDTO struct {
	QualityCritical     float64 `json:"quality_critical"`
	QualityHigh         float64 `json:"quality_high"`
	QualityMedium       float64 `json:"quality_medium"`
	ConsecutiveHigh     int     `json:"consecutive_high"`
	ConsecutiveCritical int     `json:"consecutive_critical"`
	FailureRateWindow   int     `json:"failure_rate_window"`
	FailureRateHigh     float64 `json:"failure_rate_high"`
	FailureRateMedium   float64 `json:"failure_rate_medium"`
	RecentFailureWindow float64 `json:"recent_failure_window_seconds"`
	DelayMedium         float64 `json:"delay_medium_seconds"`
	DelayHigh           float64 `json:"delay_high_seconds"`
	DelayCritical       float64 `json:"delay_critical_seconds"`
}

// ThresholdsToDTO converts thresholds for the wire
func ThresholdsToDTO(t risk.Thresholds) ThresholdsDTO {
	return ThresholdsDTO{
		QualityCritical:     t.QualityCritical,
		QualityHigh:         t.QualityHigh,
		QualityMedium:       t.QualityMedium,
		ConsecutiveHigh:     t.ConsecutiveHigh,
		ConsecutiveCritical: t.ConsecutiveCritical,
		FailureRateWindow:   t.FailureRateWindow,
		FailureRateHigh:     t.FailureRateHigh,
		FailureRateMedium:   t.FailureRateMedium,
		RecentFailureWindow: t.RecentFailureWindow.Seconds(),
		DelayMedium:         t.DelayMedium.Seconds(),
		DelayHigh:           t.DelayHigh.Seconds(),
		DelayCritical:       t.DelayCritical.Seconds(),
	}
}

// Thresholds converts back
func (d ThresholdsDTO) Thresholds() risk.Thresholds {
	secs := func(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }
	return risk.Thresholds{
		QualityCritical:     d.QualityCritical,
		QualityHigh:         d.QualityHigh,
		QualityMedium:       d.QualityMedium,
		ConsecutiveHigh:     d.ConsecutiveHigh,
		ConsecutiveCritical: d.ConsecutiveCritical,
		FailureRateWindow:   d.FailureRateWindow,
		FailureRateHigh:     d.FailureRateHigh,
		FailureRateMedium:   d.FailureRateMedium,
		RecentFailureWindow: secs(d.RecentFailureWindow),
		DelayMedium:         secs(d.DelayMedium),
		DelayHigh:           secs(d.DelayHigh),
		DelayCritical:       secs(d.DelayCritical),
	}
}

// ThresholdsHandler reads and replaces the active thresholds
type ThresholdsHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewThresholdsHandler creates a new thresholds handler
func NewThresholdsHandler(eng *engine.Engine, log *logger.Logger) *ThresholdsHandler {
	return &ThresholdsHandler{
		engine: eng,
		logger: log,
	}
}

// Get returns the active thresholds
// GET /api/thresholds
func (h *ThresholdsHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ThresholdsToDTO(h.engine.Thresholds()))
}

// Put replaces thresholds. Omitted fields keep their current value.
// PUT /api/thresholds
func (h *ThresholdsHandler) Put(w http.ResponseWriter, r *http.Request) {
	dto := ThresholdsToDTO(h.engine.Thresholds())
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.engine.SetThresholds(dto.Thresholds()); err != nil {
		var ce *risk.ConfigError
		if errors.As(err, &ce) {
			respondJSON(w, http.StatusBadRequest, map[string]string{
				"error": ce.Error(),
				"field": ce.Field,
			})
			return
		}
		h.logger.WithError(err).Error("Failed to update thresholds")
		respondError(w, http.StatusInternalServerError, "Failed to update thresholds")
		return
	}

	respondJSON(w, http.StatusOK, ThresholdsToDTO(h.engine.Thresholds()))
}
