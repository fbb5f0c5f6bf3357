// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package relay

import "time"

// Session lifecycle event types.
const (
	EventSessionCreated  = "session.created"
	EventSessionEvicted  = "session.evicted"
	EventSessionClosed   = "session.closed"
	EventTrackingStopped = "session.tracking_stopped"
)

// Event describes a session lifecycle change.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	PersonID  int64     `json:"person_id"`
	VideoID   int64     `json:"video_id"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// EventSink receives lifecycle events. Publish must not block the caller
// for long; it runs on relay goroutines.
type EventSink interface {
	Publish(event Event)
}
