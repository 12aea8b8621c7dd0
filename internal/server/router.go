package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/inkwell/inkwell/internal/handler"
	"github.com/inkwell/inkwell/internal/middleware"
)

// Routes holds everything NewRouter mounts.
type Routes struct {
	Logger      *slog.Logger
	Development bool
	CORSOrigins []string
	MaxBodySize int64

	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig

	Root      *handler.Handler
	Health    *handler.HealthHandler
	Metrics   *handler.MetricsHandler // optional
	Content   *handler.ContentHandler
	Billing   *handler.BillingHandler
	Accounts  *handler.AccountHandler
	Templates *handler.TemplateHandler
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(rt Routes) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(rt.Logger))
	r.Use(middleware.Recoverer(rt.Logger))
	r.Use(middleware.Security(rt.Development))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(rt.CORSOrigins)))
	r.Use(middleware.MaxBodySize(rt.MaxBodySize))

	// Health endpoints (no auth required)
	r.Get("/healthz", rt.Health.Healthz)
	r.Get("/readyz", rt.Health.Readyz)
	if rt.Metrics != nil {
		r.Get("/metrics", rt.Metrics.Metrics)
	}

	// Root info endpoint
	r.Get("/", rt.Root.Hello)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		// Public catalog
		r.Get("/plans", rt.Billing.Plans)
		r.Get("/templates", rt.Templates.List)
		r.Get("/templates/{slug}", rt.Templates.Get)

		// Credential exchange, limited per client IP
		r.With(middleware.RateLimitIP(rt.RateLimit)).Post("/auth/register", rt.Accounts.Register)
		r.With(middleware.RateLimitIP(rt.RateLimit)).Post("/auth/login", rt.Accounts.Login)

		// Authenticated routes, limited per account by plan tier
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(rt.Auth))
			r.Use(middleware.RateLimitAPI(rt.RateLimit))

			r.Post("/auth/logout", rt.Accounts.Logout)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", rt.Accounts.Me)
				r.Get("/usage", rt.Accounts.Usage)
				r.Put("/profile", rt.Accounts.UpdateProfile)
			})

			r.With(middleware.RequireContentWrite()).Post("/generate", rt.Content.Generate)

			r.Route("/history", func(r chi.Router) {
				r.Use(middleware.RequireContentRead())
				r.Get("/", rt.Content.History)
				r.Get("/{id}", rt.Content.GetGeneration)
			})

			r.Route("/billing", func(r chi.Router) {
				r.Use(middleware.RequireBilling())
				r.Post("/order", rt.Billing.CreateOrder)
				r.Post("/verify", rt.Billing.Verify)
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(rt.Root.NotFound)
	r.MethodNotAllowed(rt.Root.MethodNotAllowed)

	return r
}
