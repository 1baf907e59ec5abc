package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/resolvd/llm-governor/app"
	"github.com/resolvd/llm-governor/handlers"
	"github.com/resolvd/llm-governor/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(120 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.Logger)
	completionHandler := handlers.NewCompletionHandler(deps.Gateway, deps.Logger)
	metricsHandler := handlers.NewMetricsHandler(deps.Gateway, deps.Logger)

	// Health check endpoint
	r.Get("/healthz", healthHandler.HandleHealth)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.Identity).Post("/completions", completionHandler.HandleCompletion)
		r.Get("/metrics", metricsHandler.HandleMetrics)
	})

	return r
}
