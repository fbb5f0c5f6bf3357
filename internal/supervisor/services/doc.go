// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

/*
Package services provides suture.Service wrappers for Trackrelay components.

The wrappers translate other lifecycle shapes into suture's context-aware
Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

HTTPServerService runs an *http.Server and shuts it down gracefully when the
context ends. Hijacked WebSocket connections are not tracked by
http.Server.Shutdown; RelayDrainService closes those.

RelayDrainService blocks until the context ends, then calls Shutdown on the
relay manager so every live client receives a disconnected frame.

CheckpointService periodically flushes the database write-ahead log.

Components that already implement Serve (relay.Reaper, events.AuditLog,
audit.Retention, api.SessionLimiter) are added to the tree directly.
*/
package services
