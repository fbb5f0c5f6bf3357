// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

// Package events carries session lifecycle events (created, evicted, closed,
// tracking stopped) on an in-process watermill gochannel.
//
// Bus is handed to relay.Manager as its EventSink. Publishing never blocks
// relay goroutines: messages are queued per subscriber and dropped when no
// subscriber exists. AuditLog subscribes to TopicSessions under the
// supervisor, logs every event and keeps a bounded history for the admin
// API.
//
//	bus := events.NewBus(256, nil)
//	audit := events.NewAuditLog(bus.Subscriber(), 0, nil)
//	tree.AddMessagingService(audit)
package events
