// Package server assembles the HTTP router.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/cloudfiles/webapp/internal/file"
	"github.com/cloudfiles/webapp/internal/health"
	appMiddleware "github.com/cloudfiles/webapp/internal/middleware"

	_ "github.com/cloudfiles/webapp/docs/swagger"
)

// Handlers are the endpoint handlers mounted by NewRouter.
type Handlers struct {
	File   *file.Handler
	Health *health.Handler
}

// Rules returns the request constraints for the public API. /metrics and
// /swagger are not constrained.
func Rules() []appMiddleware.Rule {
	return []appMiddleware.Rule{
		{
			Prefix:  "/v1",
			Methods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			NoBody:  []string{http.MethodGet, http.MethodDelete},
		},
		{
			Prefix:  "/healthz",
			Methods: []string{http.MethodGet},
		},
	}
}

// NewRouter builds the chi router serving the file API, health check, metrics
// and API docs.
func NewRouter(h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(appMiddleware.Recover(logger))
	r.Use(appMiddleware.Metrics)
	// Boundary must precede cors; preflights are subject to the same rules.
	r.Use(appMiddleware.Boundary(Rules()...))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	r.Get("/healthz", h.Health.Healthz)

	r.Post("/v1/file", h.File.Upload)
	r.Get("/v1/file/{id}", h.File.Get)
	r.Delete("/v1/file/{id}", h.File.Delete)

	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI at /swagger/index.html
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}
