package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/castellan-ai/castellan/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type DecisionHandler struct {
	svc *service.EpisodicService
}

func NewDecisionHandler(svc *service.EpisodicService) *DecisionHandler {
	return &DecisionHandler{svc: svc}
}

type createDecisionRequest struct {
	DecisionType string          `json:"decision_type"`
	Decision     domain.Decision `json:"decision"`
	RecordedAt   string          `json:"recorded_at,omitempty"` // RFC3339
}

func (h *DecisionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.StoreDecisionInput{
		DecisionType: req.DecisionType,
		Decision:     req.Decision,
	}
	if req.RecordedAt != "" {
		t, err := time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid recorded_at format (use RFC3339)")
			return
		}
		input.RecordedAt = t
	}

	episode, err := h.svc.StoreDecision(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDecisionSummaryEmpty),
			errors.Is(err, service.ErrInvalidDecisionType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to store decision")
		}
		return
	}

	writeJSON(w, http.StatusCreated, episode)
}

func (h *DecisionHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid decision id")
		return
	}

	var outcome domain.Outcome
	if err := json.NewDecoder(r.Body).Decode(&outcome); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	episode, err := h.svc.RecordOutcome(r.Context(), id, &outcome)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEpisodeNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidOutcome):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to record outcome")
		}
		return
	}

	writeJSON(w, http.StatusOK, episode)
}

func (h *DecisionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid decision id")
		return
	}

	episode, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrEpisodeNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch decision")
		return
	}

	// Reading a memory reinforces it.
	if err := h.svc.RecordAccess(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record access")
		return
	}

	writeJSON(w, http.StatusOK, episode)
}

type recallRequest struct {
	Context string `json:"context"`
	TopK    int    `json:"top_k,omitempty"`
}

func (h *DecisionHandler) Recall(w http.ResponseWriter, r *http.Request) {
	var req recallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := h.svc.FindSimilar(r.Context(), req.Context, req.TopK)
	if err != nil {
		if errors.Is(err, service.ErrQueryEmpty) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "recall failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}
