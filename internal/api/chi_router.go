// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/trackrelay/internal/auth"
	"github.com/tomtom215/trackrelay/internal/authz"
	"github.com/tomtom215/trackrelay/internal/middleware"
)

// Router wires handlers to routes and middleware.
type Router struct {
	handler       *Handler
	authn         *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. Rate limits and CORS come from the handler's
// security configuration.
func NewRouter(handler *Handler, authn *auth.Middleware, authzMiddleware *authz.Middleware) *Router {
	sec := handler.config.Security
	return &Router{
		handler: handler,
		authn:   authn,
		authz:   authzMiddleware,
		chiMiddleware: NewChiMiddlewareFromSecurity(
			sec.CORSOrigins,
			sec.RateLimitReqs,
			sec.RateLimitWindow,
			sec.RateLimitDisabled,
		),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

	r.Handle("/metrics", promhttp.Handler())

	// Tracking relay. The upgrade is authenticated like any other request;
	// the cookie travels with the browser handshake.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.authn.Authenticate)
		r.Get("/ws/video-track/{personId}/{videoId}", router.handler.VideoTrack)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.CORS())
		r.Use(APISecurityHeaders())

		r.Route("/health", func(r chi.Router) {
			r.Get("/live", router.handler.HealthLive)
			r.Get("/ready", router.handler.HealthReady)
			r.Get("/", router.handler.Health)
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)
			r.Post("/logout", router.handler.Logout)
			r.With(router.authn.Authenticate).Get("/me", router.handler.Me)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.authn.Authenticate)

			r.Post("/current/stop", router.handler.StopCurrentSession)

			r.Group(func(r chi.Router) {
				r.Use(router.authz.Require(authz.ObjectSessions, authz.ActionList))
				r.Get("/", router.handler.ListSessions)
				r.Get("/events", router.handler.SessionEvents)
			})
		})
	})

	return r
}
