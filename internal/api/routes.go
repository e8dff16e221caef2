package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// NewRouter constructs the HTTP router with middleware and routes.
func NewRouter(h *Handler, apiKey string, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(CORSMiddleware)
	if apiKey != "" {
		r.Use(AuthMiddleware(apiKey))
	}

	r.Get("/v1/health", h.HandleHealth)

	r.Post("/v1/export/podcast", h.HandleExport)

	r.Get("/v1/voices", h.HandleVoices)

	r.Get("/v1/cache/stats", h.HandleCacheStats)
	r.Post("/v1/cache/cleanup", h.HandleCacheCleanup)

	r.Get("/v1/metrics", h.HandleMetrics)

	return r
}
