package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the HTTP router with middleware and all API routes.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/models", func(r chi.Router) {
			r.Get("/", h.ListModels)
			r.Post("/", h.CreateModel)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetModel)
				r.Delete("/", h.DeleteModel)
				r.Post("/recalculate", h.RecalculateModel)
				r.Post("/ameliorate", h.AmeliorateModel)
				r.Get("/rate", h.GetModelRate)
			})
		})

		r.Post("/schedule/preview", h.PreviewSchedule)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		r.Get("/reports/affordability", h.GetAffordability)
		r.Post("/reset", h.Reset)
	})

	return r
}
