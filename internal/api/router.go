package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter assembles the chi route tree with all middleware applied.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// WebSocket authenticates via query parameter inside the
		// handler, since browsers cannot set headers on upgrades.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/states", s.handleListStates)
			r.Get("/states/{entity_id}", s.handleGetState)
			r.Put("/states/{entity_id}", s.handleSetState)
			r.Delete("/states/{entity_id}", s.handleRemoveState)

			r.Get("/services", s.handleListServices)
			r.Post("/services/{domain}/{service}", s.handleCallService)

			r.Post("/events/{event_type}", s.handlePublishEvent)

			r.Get("/history/{entity_id}", s.handleHistory)
		})
	})

	return r
}

// healthResponse is the body returned by GET /api/v1/health.
type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   s.version,
		State:     string(s.hub.State()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
