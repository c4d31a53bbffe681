package api

import (
	"encoding/json"
	"net/http"

	"github.com/arnab-netizen/AICMO-sub004/internal/engine"
	"github.com/arnab-netizen/AICMO-sub004/internal/store"
	"github.com/go-chi/chi/v5"
)

type CampaignHandler struct {
	store *store.PostgresStore
}

func NewCampaignHandler(s *store.PostgresStore) *CampaignHandler {
	return &CampaignHandler{store: s}
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.store.ListCampaigns(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}
	respondJSON(w, http.StatusOK, campaigns)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := h.store.GetCampaign(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}
	respondJSON(w, http.StatusOK, campaign)
}

// Metrics returns the campaign's current health snapshot, computed on
// demand from the same aggregates the worker's decision stage uses.
func (h *CampaignHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := h.store.GetCampaign(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	counts, err := h.store.GetCampaignCounts(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}

	respondJSON(w, http.StatusOK, engine.BuildSnapshot(counts))
}

type pauseRequest struct {
	Reason string `json:"reason"`
}

func (h *CampaignHandler) Pause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		req.Reason = "paused by operator"
	}

	campaign, err := h.store.GetCampaign(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	if err := h.store.PauseCampaign(r.Context(), id, req.Reason); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to pause campaign")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (h *CampaignHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := h.store.GetCampaign(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	if err := h.store.ResumeCampaign(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resume campaign")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "active"})
}
