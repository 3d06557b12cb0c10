package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ignite/leadops/internal/config"
)

// SetupRoutes configures the health probes and the recipient API.
func SetupRoutes(h *RecipientHandlers, health *HealthChecker, corsCfg config.CORSConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", OrganizationHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", health.HandleHealth)
	r.Get("/health/live", health.HandleLiveness)
	r.Get("/health/ready", health.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
	})

	return r
}
