package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/castellan-ai/castellan/internal/service"
)

type MaintenanceHandler struct {
	svc    *service.ConsolidationService
	buffer domain.ShortTermBuffer
}

func NewMaintenanceHandler(svc *service.ConsolidationService, buffer domain.ShortTermBuffer) *MaintenanceHandler {
	return &MaintenanceHandler{svc: svc, buffer: buffer}
}

// Run triggers one maintenance cycle on demand, outside the background
// schedule.
func (h *MaintenanceHandler) Run(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.RunMaintenance(r.Context())
	if err != nil {
		// Partial results are still reported alongside the failure.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "maintenance cycle failed",
			"stats": stats,
		})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Load reports the current cognitive load over episodic memory.
func (h *MaintenanceHandler) Load(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute memory load")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type bufferEntryRequest struct {
	DecisionType string          `json:"decision_type"`
	Payload      json.RawMessage `json:"payload"`
}

// AppendBuffer records a raw interaction into the short-term buffer, where
// it dwells until consolidation or expiry.
func (h *MaintenanceHandler) AppendBuffer(w http.ResponseWriter, r *http.Request) {
	var req bufferEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Payload) == 0 {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}
	if !domain.ValidDecisionType(req.DecisionType) {
		writeError(w, http.StatusBadRequest, "invalid decision type")
		return
	}

	entry := &domain.ShortTermEntry{
		DecisionType: req.DecisionType,
		Payload:      req.Payload,
	}
	if err := h.buffer.Append(r.Context(), entry); err != nil {
		writeError(w, http.StatusServiceUnavailable, "short-term buffer unavailable")
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}
