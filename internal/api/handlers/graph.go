package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/castellan-ai/castellan/internal/service"
)

type GraphHandler struct {
	svc *service.SemanticService
}

func NewGraphHandler(svc *service.SemanticService) *GraphHandler {
	return &GraphHandler{svc: svc}
}

type buildNetworkRequest struct {
	Relationships []domain.Relationship `json:"relationships"`
}

func (h *GraphHandler) BuildNetwork(w http.ResponseWriter, r *http.Request) {
	var req buildNetworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stats, err := h.svc.BuildActorNetwork(r.Context(), req.Relationships)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoRelationships),
			errors.Is(err, service.ErrInvalidRelationType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to build network")
		}
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

type trackPreferencesRequest struct {
	UserID       string                    `json:"user_id"`
	Observations []domain.GenreObservation `json:"observations"`
}

func (h *GraphHandler) TrackPreferences(w http.ResponseWriter, r *http.Request) {
	var req trackPreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.svc.TrackGenrePreferences(r.Context(), req.UserID, req.Observations)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserIDMissing),
			errors.Is(err, service.ErrNoObservations):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to track preferences")
		}
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *GraphHandler) Query(w http.ResponseWriter, r *http.Request) {
	var q domain.GraphQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	matches := h.svc.Query(q)
	writeJSON(w, http.StatusOK, map[string]any{
		"matches": matches,
		"count":   len(matches),
	})
}
