// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/trackrelay/internal/audit"
	"github.com/tomtom215/trackrelay/internal/auth"
	"github.com/tomtom215/trackrelay/internal/authz"
	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/relay"
)

// StopCurrentSession sends stop_tracking for the caller's live session.
// The session itself stays open.
func (h *Handler) StopCurrentSession(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required", nil)
		return
	}

	s, err := h.manager.SessionForUser(user.ID)
	if err != nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No active tracking session", nil)
		return
	}

	allowed, err := h.authorizer.Authorize(
		authz.Principal{UserID: user.ID, Role: user.Role},
		authz.ObjectSession, authz.ActionStop, s.UserID,
	)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authorization check failed", err)
		return
	}
	if !allowed {
		h.security.LogAccessDenied(user.ID, authz.ObjectSession, authz.ActionStop, r.RemoteAddr)
		respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "Insufficient permissions", nil)
		return
	}

	if err := h.manager.StopTracking(s.ID); err != nil {
		if errors.Is(err, relay.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "No active tracking session", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to stop tracking", err)
		return
	}

	logging.Ctx(logging.ContextWithSessionID(r.Context(), s.ID)).Info().Msg("Stop tracking requested")
	respondSuccess(w, http.StatusOK, StopSessionResponse{SessionID: s.ID, Stopped: true})
}

// ListSessions returns every live session, oldest first.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.manager.Registry().Snapshot()
	respondSuccess(w, http.StatusOK, SessionListResponse{
		Sessions: sessions,
		Count:    len(sessions),
	})
}

// SessionEvents returns session lifecycle events, oldest first. With a
// persistent store the query parameters filter the stored history;
// otherwise the audit log's recent window is filtered in memory.
func (h *Handler) SessionEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil && h.eventStore == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Session event history is not enabled", nil)
		return
	}

	query, err := parseSessionEventsQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if apiErr := validateRequest(query); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}
	filter := query.Filter()

	var events []relay.Event
	if h.eventStore != nil {
		events, err = h.eventStore.Query(r.Context(), filter)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query session events", err)
			return
		}
	} else {
		events = filterRecent(h.events.Recent(), filter)
	}
	if events == nil {
		events = []relay.Event{}
	}

	respondSuccess(w, http.StatusOK, SessionEventsResponse{
		Events: events,
		Count:  len(events),
	})
}

// filterRecent applies filter to an oldest-first slice, keeping the newest
// matches.
func filterRecent(recent []relay.Event, filter audit.QueryFilter) []relay.Event {
	matched := make([]relay.Event, 0, len(recent))
	for i := range recent {
		if filter.Matches(&recent[i]) {
			matched = append(matched, recent[i])
		}
	}
	if limit := filter.EffectiveLimit(); len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}
