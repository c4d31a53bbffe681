package api

import (
	"net/http"

	"github.com/arnab-netizen/AICMO-sub004/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures the operator HTTP router. It exposes
// read paths and the manual pause/resume actions; everything else happens
// inside the worker loop.
func NewRouter(pgStore *store.PostgresStore) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	campaignHandler := NewCampaignHandler(pgStore)
	replyHandler := NewReplyHandler(pgStore)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler(pgStore))

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", campaignHandler.List)
			r.Get("/{id}", campaignHandler.Get)
			r.Get("/{id}/metrics", campaignHandler.Metrics)
			r.Post("/{id}/pause", campaignHandler.Pause)
			r.Post("/{id}/resume", campaignHandler.Resume)
		})

		r.Get("/replies", replyHandler.List)
		r.Get("/alerts", replyHandler.AlertLog)
	})

	return r
}
