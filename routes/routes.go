package routes

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/realm-guard/app"
	"github.com/upb/realm-guard/handlers"
	"github.com/upb/realm-guard/internal/shared"
	"github.com/upb/realm-guard/keycloak"
	"github.com/upb/realm-guard/utils"
)

// AdminRoles may read recorded auth events
var AdminRoles = []string{"admin", "realm-guard:admin"}

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", shared.RequestIDHeader},
		ExposedHeaders:   []string{keycloak.RefreshHeader, shared.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(sqlDB(deps), deps.Auth.Resolver, deps.Logger)
	users := handlers.NewUserHandler(deps.Logger)
	events := handlers.NewEventHandler(deps.AuthEvents, deps.Logger)

	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/protected", users.HandleProtected)
			r.Get("/me", users.HandleMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireRole(AdminRoles...))
			r.Get("/admin/events", events.HandleList)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "Resource not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

func sqlDB(deps *app.Dependencies) *sql.DB {
	if deps.DB == nil {
		return nil
	}
	return deps.DB.DB
}
