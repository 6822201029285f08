package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/fraudshield/app"
	"github.com/upb/fraudshield/handlers"
	"github.com/upb/fraudshield/middleware"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/utils"
)

const defaultRequestTimeout = 60 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Observability.MetricsEnabled {
		r.Use(deps.Metrics.Middleware)
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	requestTimeout := cfg.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	health := handlers.NewHealthHandler(deps.DB, deps.Clock, deps.Logger)
	entitlements := handlers.NewEntitlementHandler(deps.Entitlements, deps.Tenants, deps.Metrics, deps.Logger)
	exclusions := handlers.NewExclusionHandler(deps.Exclusions, deps.Clock, deps.Metrics, deps.Logger)
	admin := handlers.NewAdminHandler(deps.Access, deps.Users, deps.Tenants, deps.Logger)
	actions := handlers.NewActionHandler(deps.Actions, deps.Metrics, deps.Logger)
	sessions := handlers.NewSessionHandler(deps.TokenIssuer, deps.Actions, !cfg.IsDevelopment(), deps.Logger)

	authn := deps.AuthMiddleware
	authz := deps.AccessMiddleware

	// Health check endpoints
	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))
		r.Get("/healthz", health.HandleHealth)
		r.Get("/readyz", health.HandleReadiness)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Long-lived websocket stream, exempt from the request timeout
		r.With(authn.RequireAuth).Get("/notifications/ws", handlers.NotificationsHandler(deps.Notifications))

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))

			r.With(authn.OptionalAuth).Post("/auth/logout", sessions.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(authn.RequireAuth)

				r.Post("/auth/refresh", sessions.HandleRefresh)

				r.Get("/entitlements", entitlements.HandleList)
				r.Get("/entitlements/{feature}", entitlements.HandleGet)
				r.Get("/report-dimensions", entitlements.HandleDimensions)

				r.Get("/exclusions", exclusions.HandleList)
				r.Get("/exclusions/{id}", exclusions.HandleGet)

				r.Get("/actions/{key}", actions.HandleGet)
				r.Put("/actions/{key}", actions.HandleTransition)
			})

			// Back office (require an admin profile)
			r.Route("/admin", func(r chi.Router) {
				r.Use(authn.RequireAuth)
				r.Use(authn.LoadUser)
				r.Use(authn.RequireAdmin)

				r.Get("/privileges", admin.HandlePrivileges)
				r.With(authz.RequirePrivilege(models.PrivilegeViewUsers)).Get("/users", admin.HandleListUsers)
				r.With(authz.RequirePrivilege(models.PrivilegeViewTenants)).Get("/tenants/{id}", admin.HandleGetTenant)
				r.With(authz.RequirePrivilege(models.PrivilegeEditTenantPlan)).Put("/tenants/{id}/plan", admin.HandleChangePlan)
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
