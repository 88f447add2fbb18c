package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates the admin router: in-flight requests, health check and
// the Prometheus metrics endpoint.
func NewRouter(requests ActiveLister, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	requestHandler := NewRequestHandler(requests, logger)

	r.Route("/requests", func(r chi.Router) {
		r.Get("/", requestHandler.ListRequests)
		r.Get("/{requestID}", requestHandler.GetRequest)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
