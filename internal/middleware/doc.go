// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

// Package middleware provides HTTP middleware shared by all routes.
//
//   - RequestID: propagates or generates X-Request-ID and attaches it to the
//     logging context
//   - PrometheusMetrics: request count, latency and in-flight gauge labelled
//     by chi route pattern; supports hijacking for WebSocket upgrades
//
// Both are chi-compatible (func(http.Handler) http.Handler):
//
//	r := chi.NewRouter()
//	r.Use(middleware.RequestID)
//	r.Use(middleware.PrometheusMetrics)
package middleware
