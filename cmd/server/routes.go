package main

import (
	"net/http"

	"github.com/dennisdiepolder/callscope/internal/api"
	"github.com/dennisdiepolder/callscope/internal/auth"
	"github.com/dennisdiepolder/callscope/internal/config"
	"github.com/dennisdiepolder/callscope/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func newRouter(cfg *config.Config, deps *dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(deps.prom))

	// Public routes
	r.Get("/health", healthHandler)
	r.Get("/ready", deps.system.Ready)
	r.Method(http.MethodGet, "/metrics", deps.prom.Handler())

	r.Route("/api", func(r chi.Router) {
		// Account endpoints exist only when this service issues the sessions
		if cfg.Auth.Mode == config.AuthModeLocal {
			limiter := middleware.NewRateLimiter(cfg.Auth.RateLimit, cfg.Auth.RateBurst)
			r.Group(func(r chi.Router) {
				r.Use(limiter.Handler)
				r.Post("/auth/signup", deps.auth.SignUp)
				r.Post("/auth/signin", deps.auth.SignIn)
				r.Post("/auth/verify", deps.auth.Verify)
				r.Post("/auth/resend-verification", deps.auth.ResendVerification)
				r.Post("/auth/forgot-password", deps.auth.ForgotPassword)
				r.Post("/auth/reset-password", deps.auth.ResetPassword)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(deps.authenticator.Middleware)

			r.Get("/auth/me", deps.auth.Me)
			r.Get("/metrics", deps.metrics.ListMetrics)
			r.Post("/chat", deps.chat.Chat)
			r.With(api.RequireAdmin).Get("/admin/tenants", deps.system.ListTenants)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireTenant(deps.tenants))

				r.Get("/metrics/duration-histogram", deps.metrics.GetHistogram)
				r.Get("/metrics/{metric}", deps.metrics.GetMetric)
				r.Get("/metrics/{metric}/series", deps.metrics.GetSeries)
				r.Get("/metrics/{metric}/ranking", deps.metrics.GetRanking)

				r.Get("/agents", deps.records.ListAgents)
				r.Get("/agents/{username}", deps.records.GetAgent)

				r.Get("/projects", deps.records.ListProjects)
				r.With(api.RequireSupervisor).Patch("/projects/{id}", deps.records.UpdateProject)

				r.Get("/calls", deps.records.ListCalls)
				r.Get("/calls/{id}", deps.records.GetCall)
				r.With(api.RequireSupervisor).Delete("/calls/{id}", deps.records.DeleteCall)

				r.Post("/chat/agent-summary", deps.chat.AgentSummary)
			})
		})
	})

	return r
}
