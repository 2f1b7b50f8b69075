package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/dqguard/internal/engine"
	"github.com/wonny/dqguard/pkg/logger"
)

// maxAssessBody caps POST /api/assess bodies
const maxAssessBody = 8 << 20

// AssessRequest is the POST /api/assess body
type AssessRequest struct {
	Source   string                 `json:"source"`
	DataType string                 `json:"data_type"`
	Data     interface{}            `json:"data"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// AssessHandler scores batches on demand
// ⭐ SSOT: 외부 평가 요청 API는 여기서만
type AssessHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewAssessHandler creates a new assess handler
func NewAssessHandler(eng *engine.Engine, log *logger.Logger) *AssessHandler {
	return &AssessHandler{
		engine: eng,
		logger: log,
	}
}

// Assess scores one batch. Bad batches still return 200 with a CRITICAL
// assessment; only a malformed request body or context is a 400.
// POST /api/assess
func (h *AssessHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAssessBody))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	actx, err := engine.ContextFromMap(req.Context)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	a := h.engine.Assess(r.Context(), req.Data, req.Source, req.DataType, actx)
	respondJSON(w, http.StatusOK, a)
}
