// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/pelagos-app/pelagos/internal/auth"
	"github.com/pelagos-app/pelagos/internal/authz"
	"github.com/pelagos-app/pelagos/internal/middleware"
)

// Router assembles the HTTP route tree using the Chi router.
type Router struct {
	handler         *Handler
	middleware      *auth.Middleware
	authzMiddleware *authz.Middleware
	chiMiddleware   *ChiMiddleware
}

// NewRouter creates a Router wired with authentication, authorization,
// and the Chi middleware factories. rateLimitWindow comes from the
// security configuration since the auth middleware only exposes the
// request budget.
func NewRouter(handler *Handler, authMW *auth.Middleware, authzMW *authz.Middleware, rateLimitWindow time.Duration) *Router {
	reqsPerWindow, rateLimitDisabled := authMW.GetRateLimitConfig()
	chiMw := NewChiMiddlewareFromSecurity(
		authMW.GetCORSOrigins(),
		reqsPerWindow,
		rateLimitWindow,
		rateLimitDisabled,
	)

	return &Router{
		handler:         handler,
		middleware:      authMW,
		authzMiddleware: authzMW,
		chiMiddleware:   chiMw,
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so the auth and metrics middleware
// work with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// Health endpoints. Permissive rate limiting so monitoring tools
	// can probe frequently.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// Authentication endpoints. Strict limits against brute force and
	// credential stuffing.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.With(router.chiMiddleware.RateLimitCustom(RateLimitLogin)).Post("/login", router.handler.Login)
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitLogin)).Post("/refresh", router.handler.Refresh)
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitRegister)).Post("/register", router.handler.Register)

		// Logout needs the caller's identity to revoke their tokens.
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware(router.middleware.Authenticate))
			r.Post("/logout", router.handler.Logout)
		})
	})

	// Payment provider webhook. Public by design: the provider cannot
	// hold a user token, so authentication is the HMAC signature
	// checked inside the handler.
	r.Route("/api/v1/payments/webhook", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitWebhook))
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Post("/", router.handler.PaymentWebhook)
	})

	// Authenticated API. Every route below requires a valid identity
	// and passes the Casbin enforcer.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(router.middleware.Authenticate))
		r.Use(chiMiddleware(router.authzMiddleware.AuthorizeRequest))

		r.Get("/me", router.handler.Me)
		r.Put("/me/cert-level", router.handler.UpdateCertLevel)

		r.Route("/centers", func(r chi.Router) {
			r.Get("/", router.handler.ListCenters)
			r.Get("/{id}", router.handler.GetCenter)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/", router.handler.CreateCenter)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Put("/{id}", router.handler.UpdateCenter)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Delete("/{id}", router.handler.DeleteCenter)
		})

		r.Route("/vessels", func(r chi.Router) {
			r.Get("/", router.handler.ListVessels)
			r.Get("/{id}", router.handler.GetVessel)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/", router.handler.CreateVessel)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Put("/{id}", router.handler.UpdateVessel)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Delete("/{id}", router.handler.DeleteVessel)
		})

		r.Route("/instructors", func(r chi.Router) {
			r.Get("/", router.handler.ListInstructors)
			r.Get("/{id}", router.handler.GetInstructor)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/", router.handler.CreateInstructor)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Put("/{id}", router.handler.UpdateInstructor)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Delete("/{id}", router.handler.DeleteInstructor)
		})

		r.Route("/trips", func(r chi.Router) {
			r.Get("/", router.handler.ListTrips)
			r.Get("/{id}", router.handler.GetTrip)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/", router.handler.CreateTrip)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Put("/{id}", router.handler.UpdateTrip)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/{id}/cancel", router.handler.CancelTrip)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Delete("/{id}", router.handler.DeleteTrip)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", router.handler.ListBookings)
			r.Get("/{id}", router.handler.GetBooking)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/", router.handler.CreateBooking)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/{id}/cancel", router.handler.CancelBooking)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/{id}/confirm", router.handler.ConfirmBooking)
		})

		r.Get("/payments", router.handler.ListPayments)

		r.Route("/sync", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitSync))
			r.Get("/changes", router.handler.SyncChanges)
			r.Post("/ack", router.handler.AckSyncCursor)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", router.handler.ListDevices)
			r.Post("/", router.handler.RegisterDevice)
		})

		r.With(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket)).Get("/ws", router.handler.WebSocket)
	})

	// Observability.
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
