package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/llm-cost-guard/app"
	"github.com/upb/llm-cost-guard/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Logger)
	evaluateHandler := handlers.NewEvaluateHandler(deps.Evaluation, deps.Logger)
	baselineHandler := handlers.NewBaselineHandler(deps.Baseline, deps.Logger)
	usageHandler := handlers.NewUsageHandler(deps.Ledger, deps.Logger)
	policyHandler := handlers.NewPolicyHandler(deps.Engine, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluate", evaluateHandler.HandleEvaluate)
		r.Post("/simulate", evaluateHandler.HandleSimulate)
		r.Get("/usage", usageHandler.HandleListUsage)
		r.Get("/baselines/{feature}/{model}", baselineHandler.HandleGetBaseline)
		r.Get("/policies", policyHandler.HandleListPolicies)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
