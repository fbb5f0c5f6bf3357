// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package events

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/trackrelay/internal/audit"
	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/relay"
)

// DefaultAuditCapacity is how many recent events the audit log keeps.
const DefaultAuditCapacity = 200

// saveTimeout bounds one persistent store write.
const saveTimeout = 5 * time.Second

// AuditLog consumes lifecycle events, writes each to the log and keeps the
// most recent ones in memory. With a store attached each event is also
// persisted. It runs as a supervised service.
type AuditLog struct {
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
	store      audit.Store

	mu       sync.RWMutex
	recent   []relay.Event
	next     int
	full     bool
	capacity int
}

// NewAuditLog creates an audit log reading from subscriber.
func NewAuditLog(subscriber message.Subscriber, capacity int, logger watermill.LoggerAdapter) *AuditLog {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	if logger == nil {
		logger = NewLoggerAdapter()
	}
	return &AuditLog{
		subscriber: subscriber,
		logger:     logger,
		recent:     make([]relay.Event, capacity),
		capacity:   capacity,
	}
}

// WithStore attaches a persistent store. Call before Serve.
func (a *AuditLog) WithStore(store audit.Store) *AuditLog {
	a.store = store
	return a
}

// Store returns the attached store, or nil.
func (a *AuditLog) Store() audit.Store {
	return a.store
}

// Serve implements suture.Service. A fresh router is built on each start so
// the supervisor can restart it.
func (a *AuditLog) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 5 * time.Second}, a.logger)
	if err != nil {
		return fmt.Errorf("create audit router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	router.AddConsumerHandler("session-audit", TopicSessions, sharedSubscriber{a.subscriber}, a.handle)

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("audit router: %w", err)
	}
	return ctx.Err()
}

// sharedSubscriber keeps the bus open when a closing router closes its
// subscriber. The subscription itself ends with the router context.
type sharedSubscriber struct {
	message.Subscriber
}

func (sharedSubscriber) Close() error { return nil }

func (a *AuditLog) handle(msg *message.Message) error {
	event, err := Decode(msg)
	if err != nil {
		// Undecodable payloads are acked and dropped
		a.logger.Error("Dropping lifecycle event", err, nil)
		return nil
	}

	logging.Info().
		Str(logging.FieldComponent, "audit").
		Str("event_type", event.Type).
		Str(logging.FieldSessionID, event.SessionID).
		Int64(logging.FieldUserID, event.UserID).
		Int64(logging.FieldPersonID, event.PersonID).
		Int64(logging.FieldVideoID, event.VideoID).
		Str("reason", event.Reason).
		Time("at", event.At).
		Msg("Session lifecycle")

	if a.store != nil {
		ctx, cancel := context.WithTimeout(msg.Context(), saveTimeout)
		// Persistence is best effort; the event stays in the recent window
		if err := a.store.Save(ctx, event); err != nil {
			a.logger.Error("Failed to persist lifecycle event", err, watermill.LogFields{
				logging.FieldSessionID: event.SessionID,
			})
		}
		cancel()
	}

	a.mu.Lock()
	a.recent[a.next] = event
	a.next = (a.next + 1) % a.capacity
	if a.next == 0 {
		a.full = true
	}
	a.mu.Unlock()
	return nil
}

// Recent returns the retained events ordered by event time, oldest first.
// The bus delivers each message on its own goroutine, so arrival order can
// differ from publish order. Events with equal times keep arrival order.
func (a *AuditLog) Recent() []relay.Event {
	a.mu.RLock()
	var out []relay.Event
	if !a.full {
		out = make([]relay.Event, a.next)
		copy(out, a.recent[:a.next])
	} else {
		out = make([]relay.Event, 0, a.capacity)
		out = append(out, a.recent[a.next:]...)
		out = append(out, a.recent[:a.next]...)
	}
	a.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.Before(out[j].At)
	})
	return out
}

// String implements fmt.Stringer for suture logging.
func (a *AuditLog) String() string {
	return "session-audit"
}
