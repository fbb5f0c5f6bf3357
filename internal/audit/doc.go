// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

/*
Package audit stores relay session lifecycle events for later inspection.

Events arrive from the events.AuditLog subscriber, which calls Save for
each created, evicted, closed or tracking_stopped event. Storage is best
effort: a failed Save is logged and the event is still kept in the audit
log's in-memory window.

# Stores

DuckDBStore writes to the session_events table in the relay's DuckDB
database:

	store := audit.NewDuckDBStore(db.Conn())
	if err := store.CreateTable(ctx); err != nil {
	    // persistence disabled
	}

MemoryStore keeps events in process and is used in tests.

# Queries

	filter := audit.DefaultQueryFilter()
	filter.UserID = 42
	filter.Types = []string{relay.EventSessionEvicted}
	events, err := store.Query(ctx, filter)

Query returns the newest Limit matching events in chronological order.
Limit is clamped to MaxQueryLimit.

# Retention

Retention is a suture.Service that deletes events older than the configured
period (RELAY_EVENT_RETENTION) once per interval.
*/
package audit
