// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

/*
Package api provides the HTTP surface of the relay, routed with chi.

Routes:

	GET  /ws/video-track/{personId}/{videoId}  tracking WebSocket (authenticated)
	POST /api/v1/auth/login                    email + password, sets the token cookie
	POST /api/v1/auth/logout                   clears the token cookie
	GET  /api/v1/auth/me                       the authenticated user
	POST /api/v1/sessions/current/stop         stop_tracking on the caller's session
	GET  /api/v1/sessions                      live sessions (admin)
	GET  /api/v1/sessions/events               lifecycle events (admin), filtered by
	                                           user_id, session_id, type, since, until, limit
	GET  /api/v1/health, /health/live, /health/ready
	GET  /metrics                              Prometheus exposition

Middleware order is request id, real IP, panic recovery and Prometheus
metrics for every route; CORS and security headers for /api/v1; per-IP
rate limits (go-chi/httprate) on login, session and upgrade routes. The
upgrade route additionally applies a per-user session creation limit
(golang.org/x/time/rate) before the handshake.

REST responses use the models.APIResponse envelope:

	{"status":"error","error":{"code":"NOT_FOUND","message":"No active tracking session"},"metadata":{...}}

Once upgraded, every failure reaches the client as a JSON frame followed by
a close; see package relay.
*/
package api
