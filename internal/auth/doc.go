// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

// Package auth provides JWT authentication for the HTTP and WebSocket routes.
//
// Tokens are HS256 JWTs carrying a userId claim. They are read from the
// session cookie (default name "token") or from an "Authorization: Bearer"
// header. Middleware.Authenticate validates the token, loads the user from
// the store and places it in the request context, where UserFromContext
// finds it. A token whose user no longer exists is rejected.
//
// Passwords are stored as bcrypt hashes (HashPassword, CheckPassword).
//
// Example:
//
//	jwtManager, err := auth.NewJWTManager(&cfg.Security)
//	if err != nil {
//	    return err
//	}
//	mw := auth.NewMiddleware(jwtManager, db, cfg.Security.CookieName)
//	r.With(mw.Authenticate).Get("/ws/video-track/{personId}/{videoId}", h.VideoTrack)
package auth
