// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/trackrelay/internal/audit"
	"github.com/tomtom215/trackrelay/internal/relay"
)

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse is returned on successful login. The token is also set as
// the session cookie.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// TrackParams are the path parameters of the tracking WebSocket route.
type TrackParams struct {
	PersonID int64 `json:"personId" validate:"gt=0"`
	VideoID  int64 `json:"videoId" validate:"gt=0"`
}

// Refs converts the parameters into relay subject references.
func (p TrackParams) Refs() relay.SubjectRefs {
	return relay.SubjectRefs{PersonID: p.PersonID, VideoID: p.VideoID}
}

// parseTrackParams reads {personId} and {videoId}. Unparseable values are
// left zero so validation rejects them with the same message as a
// non-positive id.
func parseTrackParams(r *http.Request) TrackParams {
	return TrackParams{
		PersonID: parseIDParam(chi.URLParam(r, "personId")),
		VideoID:  parseIDParam(chi.URLParam(r, "videoId")),
	}
}

func parseIDParam(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// StopSessionResponse reports a stop_tracking request.
type StopSessionResponse struct {
	SessionID string `json:"session_id"`
	Stopped   bool   `json:"stopped"`
}

// SessionListResponse lists live sessions.
type SessionListResponse struct {
	Sessions []relay.SessionInfo `json:"sessions"`
	Count    int                 `json:"count"`
}

// SessionEventsResponse lists recent lifecycle events, oldest first.
type SessionEventsResponse struct {
	Events []relay.Event `json:"events"`
	Count  int           `json:"count"`
}

// SessionEventsQuery holds the query parameters of GET /api/v1/sessions/events.
type SessionEventsQuery struct {
	UserID    int64      `json:"user_id" validate:"gte=0"`
	SessionID string     `json:"session_id" validate:"max=64"`
	Types     []string   `json:"type" validate:"omitempty,dive,oneof=session.created session.evicted session.closed session.tracking_stopped"`
	Since     *time.Time `json:"since"`
	Until     *time.Time `json:"until"`
	Limit     int        `json:"limit" validate:"gte=0,lte=1000"`
}

// Filter converts the query into an audit filter.
func (q *SessionEventsQuery) Filter() audit.QueryFilter {
	return audit.QueryFilter{
		UserID:    q.UserID,
		SessionID: q.SessionID,
		Types:     q.Types,
		Since:     q.Since,
		Until:     q.Until,
		Limit:     q.Limit,
	}
}

// parseSessionEventsQuery reads user_id, session_id, type (repeated or
// comma separated), since and until (RFC 3339) and limit.
func parseSessionEventsQuery(r *http.Request) (*SessionEventsQuery, error) {
	values := r.URL.Query()
	q := &SessionEventsQuery{SessionID: strings.TrimSpace(values.Get("session_id"))}

	var err error
	if v := values.Get("user_id"); v != "" {
		if q.UserID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("user_id must be an integer")
		}
	}
	if v := values.Get("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("limit must be an integer")
		}
	}
	for _, raw := range values["type"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Types = append(q.Types, t)
			}
		}
	}
	if q.Since, err = parseTimeParam(values.Get("since"), "since"); err != nil {
		return nil, err
	}
	if q.Until, err = parseTimeParam(values.Get("until"), "until"); err != nil {
		return nil, err
	}
	if q.Since != nil && q.Until != nil && q.Until.Before(*q.Since) {
		return nil, fmt.Errorf("until must not be before since")
	}
	return q, nil
}

func parseTimeParam(v, name string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
	}
	return &t, nil
}
