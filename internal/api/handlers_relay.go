// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package api

import (
	"net/http"

	"github.com/tomtom215/trackrelay/internal/auth"
	"github.com/tomtom215/trackrelay/internal/logging"
)

// MsgInvalidTrackParams is sent when the path ids are not positive integers.
const MsgInvalidTrackParams = "personId and videoId must be positive integers"

// VideoTrack upgrades GET /ws/video-track/{personId}/{videoId} and runs a
// relay session until it closes. Invalid ids still complete the upgrade so
// the client receives an error frame before the close.
func (h *Handler) VideoTrack(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required", nil)
		return
	}

	if !h.limiter.Allow(user.ID) {
		logging.Ctx(r.Context()).Warn().Msg("Session creation rate limit exceeded")
		respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many tracking sessions opened, try again later", nil)
		return
	}

	params := parseTrackParams(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	if apiErr := validateRequest(params); apiErr != nil {
		logging.Ctx(r.Context()).Info().
			Str("path", sanitizeLogValue(r.URL.Path)).
			Msg("Rejected tracking session with invalid ids")
		h.manager.Reject(conn, MsgInvalidTrackParams)
		return
	}

	if err := h.manager.Serve(r.Context(), conn, user.ID, params.Refs()); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Tracking session not started")
	}
}
