package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all request/response quantum routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/quantum", func(r chi.Router) {
		r.Get("/states", h.HandleListStates)
		r.Get("/bounds", h.HandleGetBounds)
		r.Post("/expectation", h.HandleExpectation)
		r.Post("/probabilities", h.HandleProbabilities)
		r.Post("/chsh", h.HandleCHSH)
		r.Post("/simulate", h.HandleSimulate)
		r.Post("/correlation-grid", h.HandleCorrelationGrid)
	})
}

// RegisterLiveRoutes registers the websocket endpoint. It is kept apart from
// RegisterRoutes so it can be mounted outside request timeouts.
func (l *LiveHandler) RegisterLiveRoutes(r chi.Router) {
	r.Get("/quantum/live", l.HandleLive)
}
