// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package logging

// Structured field names shared by all packages.
const (
	FieldComponent = "component"
	FieldSessionID = "session_id"
	FieldUserID    = "user_id"
	FieldPersonID  = "person_id"
	FieldVideoID   = "video_id"
	FieldState     = "state"
	FieldUpstream  = "upstream_url"
	FieldDirection = "direction"
)

// Component names used with WithComponent.
const (
	ComponentRelay    = "relay"
	ComponentUpstream = "upstream"
	ComponentAPI      = "api"
	ComponentAuth     = "auth"
	ComponentEvents   = "events"
	ComponentReaper   = "reaper"
	ComponentDatabase = "database"
)
