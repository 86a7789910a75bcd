package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/taskforge/internal/api/middleware"
	"github.com/kiranshivaraju/taskforge/internal/api/response"
	"github.com/kiranshivaraju/taskforge/internal/metrics"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
// A nil rate limiter disables that limit; a nil handler answers 501.
type Dependencies struct {
	Auth           *mw.Auth
	RateLimit      *mw.RateLimit
	LoginRateLimit *mw.RateLimit
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	HealthHandler http.HandlerFunc

	RegisterTenantHandler http.HandlerFunc
	LoginHandler          http.HandlerFunc
	MeHandler             http.HandlerFunc
	LogoutHandler         http.HandlerFunc

	ListTenantsHandler  http.HandlerFunc
	GetTenantHandler    http.HandlerFunc
	UpdateTenantHandler http.HandlerFunc

	AddUserHandler    http.HandlerFunc
	ListUsersHandler  http.HandlerFunc
	UpdateUserHandler http.HandlerFunc
	DeleteUserHandler http.HandlerFunc

	CreateProjectHandler http.HandlerFunc
	ListProjectsHandler  http.HandlerFunc
	GetProjectHandler    http.HandlerFunc
	UpdateProjectHandler http.HandlerFunc
	DeleteProjectHandler http.HandlerFunc

	CreateTaskHandler       http.HandlerFunc
	ListProjectTasksHandler http.HandlerFunc
	ListTasksHandler        http.HandlerFunc
	GetTaskHandler          http.HandlerFunc
	UpdateTaskHandler       http.HandlerFunc
	UpdateTaskStatusHandler http.HandlerFunc
	DeleteTaskHandler       http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Instrument(deps.Metrics))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	// Public
	r.Get("/api/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		limit(r, deps.LoginRateLimit)

		r.Post("/api/auth/register-tenant", orNotImplemented(deps.RegisterTenantHandler))
		r.Post("/api/auth/login", orNotImplemented(deps.LoginHandler))
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		limit(r, deps.RateLimit)

		r.Get("/api/auth/me", orNotImplemented(deps.MeHandler))
		r.Post("/api/auth/logout", orNotImplemented(deps.LogoutHandler))

		r.With(deps.Auth.RequireRole(models.RoleSuperAdmin)).
			Get("/api/tenants", orNotImplemented(deps.ListTenantsHandler))
		r.Route("/api/tenants/{tenantID}", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.GetTenantHandler))
			r.Put("/", orNotImplemented(deps.UpdateTenantHandler))

			r.Group(func(r chi.Router) {
				r.Use(deps.Auth.RequireRole(models.RoleTenantAdmin))

				r.Post("/users", orNotImplemented(deps.AddUserHandler))
				r.Get("/users", orNotImplemented(deps.ListUsersHandler))
			})
		})

		r.Put("/api/users/{userID}", orNotImplemented(deps.UpdateUserHandler))
		r.Delete("/api/users/{userID}", orNotImplemented(deps.DeleteUserHandler))

		r.Route("/api/projects", func(r chi.Router) {
			r.Post("/", orNotImplemented(deps.CreateProjectHandler))
			r.Get("/", orNotImplemented(deps.ListProjectsHandler))
			r.Get("/{projectID}", orNotImplemented(deps.GetProjectHandler))
			r.Put("/{projectID}", orNotImplemented(deps.UpdateProjectHandler))
			r.Delete("/{projectID}", orNotImplemented(deps.DeleteProjectHandler))
			r.Post("/{projectID}/tasks", orNotImplemented(deps.CreateTaskHandler))
			r.Get("/{projectID}/tasks", orNotImplemented(deps.ListProjectTasksHandler))
		})

		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.ListTasksHandler))
			r.Get("/{taskID}", orNotImplemented(deps.GetTaskHandler))
			r.Put("/{taskID}", orNotImplemented(deps.UpdateTaskHandler))
			r.Patch("/{taskID}/status", orNotImplemented(deps.UpdateTaskStatusHandler))
			r.Delete("/{taskID}", orNotImplemented(deps.DeleteTaskHandler))
		})
	})

	return r
}

func limit(r chi.Router, rl *mw.RateLimit) {
	if rl != nil {
		r.Use(rl.Limit)
	}
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented")
	}
}
