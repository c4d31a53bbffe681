package api

import (
	"net/http"
	"strconv"

	"github.com/arnab-netizen/AICMO-sub004/internal/store"
)

type ReplyHandler struct {
	store *store.PostgresStore
}

func NewReplyHandler(s *store.PostgresStore) *ReplyHandler {
	return &ReplyHandler{store: s}
}

func (h *ReplyHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	limit := queryLimit(r, 50)

	replies, err := h.store.ListReplies(r.Context(), category, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list replies")
		return
	}
	respondJSON(w, http.StatusOK, replies)
}

func (h *ReplyHandler) AlertLog(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)

	entries, err := h.store.ListAlertLog(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list alert log")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func queryLimit(r *http.Request, fallback int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
