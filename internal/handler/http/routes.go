package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withLogging)

	// discovery probe, no authorization
	router.Get("/discovery/ping", h.ping)

	router.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/api/sync", func(r chi.Router) {
			r.Get("/pull", h.pull)
			r.Post("/push", h.push)
			r.Get("/full", h.fullSync)
		})
	})

	return router
}
