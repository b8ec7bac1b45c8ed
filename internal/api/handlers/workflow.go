package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/castellan-ai/castellan/internal/service"
)

type WorkflowHandler struct {
	svc *service.ProceduralService
}

func NewWorkflowHandler(svc *service.ProceduralService) *WorkflowHandler {
	return &WorkflowHandler{svc: svc}
}

type recordWorkflowRequest struct {
	UserID  string          `json:"user_id"`
	Actions []domain.Action `json:"actions"`
}

func (h *WorkflowHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	seq, err := h.svc.RecordActionSequence(r.Context(), req.UserID, req.Actions)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserIDMissing),
			errors.Is(err, service.ErrActionsEmpty),
			errors.Is(err, service.ErrActionTypeEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to record workflow")
		}
		return
	}

	writeJSON(w, http.StatusCreated, seq)
}

func (h *WorkflowHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	patterns, err := h.svc.DetectWorkflowPatterns(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mine patterns")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"patterns": patterns,
		"count":    len(patterns),
	})
}

func (h *WorkflowHandler) ConcurrentPatterns(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	patterns, err := h.svc.DetectConcurrentPatterns(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mine patterns")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"patterns": patterns,
		"count":    len(patterns),
	})
}

type optimizeRequest struct {
	UserID       string `json:"user_id,omitempty"`
	CurrentState string `json:"current_state"`
	GoalState    string `json:"goal_state"`
}

func (h *WorkflowHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	path, err := h.svc.OptimizeWorkflowPath(r.Context(), req.UserID, req.CurrentState, req.GoalState)
	if err != nil {
		if errors.Is(err, service.ErrStateMissing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to optimize path")
		return
	}
	if path == nil {
		path = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":      path,
		"reachable": len(path) > 0 || req.CurrentState == req.GoalState,
	})
}

type predictRequest struct {
	UserID       string `json:"user_id,omitempty"`
	CurrentState string `json:"current_state"`
}

func (h *WorkflowHandler) PredictNext(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	action, confidence, err := h.svc.PredictNextAction(r.Context(), req.UserID, req.CurrentState)
	if err != nil {
		if errors.Is(err, service.ErrStateMissing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to predict next action")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"next_action": action,
		"confidence":  confidence,
	})
}
