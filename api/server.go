/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions. This
  is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request counters
  5. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /token        Public login endpoint
  /metrics      Prometheus scrape endpoint
  /api/*        Everything else, behind bearer-token auth

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	// Public routes
	r.Post("/token", h.Login)
	r.Method("GET", "/metrics", promhttp.Handler())

	// Authenticated API
	r.Route("/api", func(r chi.Router) {
		r.Use(h.Auth.Middleware)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/me", h.Me)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Post("/partner/{partnerID}", h.BindPartner)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Post("/{id}/submit", h.SubmitTask)
			r.Get("/logs", h.ListTaskLogs)
			r.Post("/logs/{id}/approve", h.ApproveTaskLog)
			r.Post("/logs/{id}/reject", h.RejectTaskLog)
		})

		r.Route("/rewards", func(r chi.Router) {
			r.Get("/", h.ListRewards)
			r.Post("/", h.CreateReward)
			r.Post("/{id}/redeem", h.RedeemReward)
			r.Get("/redemptions", h.ListRedemptions)
			r.Post("/redemptions/{id}/fulfill", h.FulfillRedemption)
		})
	})

	return r
}
