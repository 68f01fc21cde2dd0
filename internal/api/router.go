// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package api

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/interlockhq/interlock/internal/auth"
	"github.com/interlockhq/interlock/internal/config"
	"github.com/interlockhq/interlock/internal/middleware"
	"github.com/interlockhq/interlock/internal/models"
	"github.com/interlockhq/interlock/internal/monitor"
	"github.com/interlockhq/interlock/internal/rbac"
)

// NewRouter assembles the full middleware chain and route table.
//
// Chain order matters: request IDs first so every later log line carries
// them, then metrics, then the rate limiter (which must see
// unauthenticated abuse), then authentication, then per-route
// authorization guards.
func NewRouter(
	cfg *config.Config,
	handlers *Handlers,
	authMW *auth.Middleware,
	guards *rbac.Middleware,
	mon *monitor.Monitor,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.API.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httprate.Limit(
		cfg.API.RateLimitRequests,
		cfg.API.RateLimitPeriod,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitHandler(mon)),
	))

	r.Get("/healthz", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMW.Authenticate)

		r.Post("/auth/check", handlers.CheckPermission)

		r.With(guards.RequirePermission("user:view")).
			Get("/roles", handlers.ListRoles)

		r.Route("/admin", func(r chi.Router) {
			r.Use(guards.RequireRole(models.RoleAdmin))

			r.Route("/users/{userID}", func(r chi.Router) {
				r.Put("/role", handlers.AssignRole)
				r.Get("/permissions", handlers.GetUserPermissions)
				r.Post("/permissions/grant", handlers.GrantPermission)
				r.Post("/permissions/revoke", handlers.RevokePermission)
				r.Post("/permissions/reset", handlers.ResetPermissions)
				r.Get("/history", handlers.GetHistory)
				r.Get("/activity", handlers.UserActivity)
			})

			r.Route("/security", func(r chi.Router) {
				r.Get("/summary", handlers.SecuritySummary)
				r.Get("/events", handlers.SecurityEvents)
				r.Get("/suspicious-ips", handlers.SuspiciousIPs)
				r.Get("/blocked-accounts", handlers.BlockedAccounts)
				r.Post("/malicious-ips", handlers.AddMaliciousIP)
			})
		})
	})

	return r
}

// rateLimitHandler reports each rejected request to the monitor, which
// escalates repeat offenders, then answers 429.
func rateLimitHandler(mon *monitor.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if mon != nil {
			event := models.NewSecurityEvent(models.EventRateLimitExceeded, models.AlertLow).
				WithNetwork(ip, r.UserAgent()).
				WithDetail("path", r.URL.Path).
				WithDetail("method", r.Method)
			if sub := auth.SubjectFromContext(r.Context()); sub != nil {
				event.WithSubject(sub.ID, sub.TenantID)
			}
			mon.LogEvent(event)
		}
		respondError(w, http.StatusTooManyRequests, "RATE_LIMITED",
			"too many requests")
	}
}
