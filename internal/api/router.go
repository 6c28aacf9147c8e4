// Package api exposes the conversion pipeline over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical/slide-converter/internal/observability"
)

// RouterConfig holds HTTP routing settings.
type RouterConfig struct {
	RequestTimeout time.Duration
	ServiceName    string
}

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, converter Converter, jobs JobReader, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	service := cfg.ServiceName
	if service == "" {
		service = "slide-converter"
	}
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"` + service + `"}`))
	})

	h := NewHandler(logger, converter, jobs)
	r.Post("/convert", h.Convert)
	r.Get("/jobs/{jobId}", h.GetJob)

	return r
}
