// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router sets up HTTP routes using Chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router for the given handler. Rate limits and
// CORS origins come from the handler's security config.
func NewRouter(handler *Handler) *Router {
	var chiMw *ChiMiddleware
	if handler.config != nil {
		chiMw = NewChiMiddlewareFromSecurity(handler.config.Security)
	} else {
		chiMw = NewChiMiddleware(DefaultChiMiddlewareConfig())
	}
	return &Router{
		handler:       handler,
		chiMiddleware: chiMw,
	}
}

// SetupChi configures all HTTP routes using Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	// Applied to ALL routes in order
	r.Use(RequestIDWithLogging())      // Add X-Request-ID header with logging context
	r.Use(chimiddleware.RealIP)        // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer)     // Recover from panics
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	// ========================
	// Health Endpoints
	// ========================
	// Permissive rate limiting (1000/min) allows frequent probes while
	// preventing abuse
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// ========================
	// Authentication Endpoints
	// ========================
	// Strict rate limiting on the whole group, stricter still on login
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitAuth))
		r.Use(APISecurityHeaders())
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitLogin)).Post("/login", router.handler.Login)
		r.Post("/logout", router.handler.Logout)
	})

	// ========================
	// Core API Endpoints
	// ========================
	// All data endpoints require authentication when auth is enabled
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())
		r.Use(router.authenticate())

		r.Get("/status", router.handler.Status)
		r.Get("/attendance/today", router.handler.AttendanceToday)
		r.Get("/attendance/{day}", router.handler.AttendanceDay)
		r.Get("/roi", router.handler.GetROI)
		r.Put("/roi", router.handler.UpdateROI)
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket)).Get("/ws", router.handler.WebSocket)
	})

	// ========================
	// Prometheus Metrics
	// ========================
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// authenticate returns the token-checking middleware, or a pass-through
// when no auth manager is wired.
func (router *Router) authenticate() func(http.Handler) http.Handler {
	if router.handler.auth != nil {
		return router.handler.auth.Authenticate
	}
	return func(next http.Handler) http.Handler { return next }
}
