/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Identity:   Resolves the agent and attaches it to the context;
                 requests without an identity get 401 before any handler

ROUTE GROUPS:
  /api/policies/*        Policy CRUD and state transitions
  /api/profile           Agent profile (one row per agent)
  /api/notifications     Recomputed reminder feed
  /api/payroll/*         Payment dates and expected commission
  /api/reconciliation/*  Period view and submit
  /api/dashboard         Landing-page rollup

SEE ALSO:
  - handlers.go: Handler implementations
  - identity: agent resolution behind the fronting proxy
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/commission-engine/identity"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, provider identity.Provider) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes, all behind agent identity.
	r.Route("/api", func(r chi.Router) {
		r.Use(agentMiddleware(provider))

		// Policy routes
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
			r.Get("/{id}", h.GetPolicy)
			r.Put("/{id}", h.UpdatePolicy)
			r.Delete("/{id}", h.DeletePolicy)
			r.Post("/{id}/verify", h.VerifyPolicy)
			r.Post("/{id}/pay", h.PayPolicy)
			r.Post("/{id}/cancel", h.CancelPolicy)
			r.Post("/{id}/reactivate", h.ReactivatePolicy)
			r.Post("/{id}/contact", h.LogContact)
			r.Post("/{id}/flag", h.FlagPolicy)
		})

		// Profile routes
		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.GetProfile)
			r.Put("/", h.UpsertProfile)
		})

		// Notification feed
		r.Get("/notifications", h.ListNotifications)

		// Payroll routes
		r.Route("/payroll", func(r chi.Router) {
			r.Get("/upcoming", h.UpcomingPayments)
			r.Get("/period", h.PeriodLookup)
			r.Get("/expected", h.ExpectedCommission)
		})

		// Reconciliation routes
		r.Route("/reconciliation", func(r chi.Router) {
			r.Get("/period", h.ReconciliationPeriod)
			r.Post("/submit", h.SubmitReconciliation)
		})

		// Dashboard summary
		r.Get("/dashboard", h.Dashboard)
	})

	return r
}

// agentMiddleware resolves the caller's identity and attaches it to the
// request context. Unresolvable requests are rejected here so handlers can
// assume an agent is present.
func agentMiddleware(provider identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agent, err := provider.Resolve(r)
			if err != nil || agent.ID == "" {
				writeError(w, http.StatusUnauthorized, "no agent identity on request", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithAgent(r.Context(), agent)))
		})
	}
}
