/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/health           Liveness probe (public)
  /api/auth/login       Credential exchange (public)
  /api/roles/*          Role hierarchy management
  /api/users/*          User directory and earnings
  /api/projects/*       Projects, plots, rules, visits
  /api/sales/*          Sale lifecycle, allocations, payments
  /api/dashboard        Summary counters
  /api/seed             Demo dataset load (dev only)

AUTH:
  Everything except health and login sits behind the bearer-token
  middleware. The authenticated user id becomes the audit actor on every
  state change.

SEE ALSO:
  - handlers.go: Handler implementations
  - auth/auth.go: RequireAuth middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
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

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)
		r.Post("/auth/login", h.Login)
		r.Post("/seed", h.LoadSeed) // dev only

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAuth)

			r.Route("/roles", func(r chi.Router) {
				r.Get("/", h.ListRoles)
				r.Post("/", h.CreateRole)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.Post("/", h.CreateUser)
				r.Get("/{id}", h.GetUser)
				r.Get("/{id}/chain", h.GetUserChain)
				r.Get("/{id}/allocations", h.GetUserAllocations)
				r.Get("/{id}/sales", h.GetUserSales)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", h.ListProjects)
				r.Post("/", h.CreateProject)
				r.Get("/{id}/plots", h.ListPlots)
				r.Post("/{id}/plots", h.CreatePlot)
				r.Get("/{id}/rules", h.ListRules)
				r.Post("/{id}/rules", h.UploadRuleSet)
				r.Get("/{id}/visits", h.ListVisits)
				r.Post("/{id}/visits", h.ScheduleVisit)
			})

			r.Delete("/rules/{id}", h.DeactivateRule)

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", h.ListSales)
				r.Post("/", h.CreateSale)
				r.Get("/{id}", h.GetSale)
				r.Post("/{id}/confirm", h.ConfirmSale)
				r.Post("/{id}/cancel", h.CancelSale)
				r.Get("/{id}/allocations", h.GetSaleAllocations)
				r.Get("/{id}/payments", h.ListPayments)
				r.Post("/{id}/payments", h.RecordPayment)
			})

			r.Get("/dashboard", h.Dashboard)
		})
	})

	return r
}
