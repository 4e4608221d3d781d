package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"experiment-bridge/internal/observability"
)

func Router(h *SessionHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Second))

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.Delete)
			r.Post("/campaigns", h.Decide)
			r.Post("/experiments", h.Experiments)
			r.Post("/initialized", h.Initialized)
			r.Post("/track", h.Track)
			r.Post("/page", h.Page)
			r.Post("/identify", h.Identify)
			r.Get("/referrer", h.Referrer)
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())
	return r
}
