// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/trackrelay/internal/relay"
)

// Query limits.
const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// Store defines the interface for session event persistence.
type Store interface {
	// Save persists a lifecycle event.
	Save(ctx context.Context, event relay.Event) error

	// Query returns the newest events matching the filter, oldest first.
	Query(ctx context.Context, filter QueryFilter) ([]relay.Event, error)

	// Delete removes events that happened before olderThan.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter defines filtering options for event queries. Zero fields
// match everything.
type QueryFilter struct {
	// UserID filters by the session owner.
	UserID int64 `json:"user_id,omitempty"`

	// SessionID filters by session.
	SessionID string `json:"session_id,omitempty"`

	// Types filters by event type (relay.Event* constants).
	Types []string `json:"types,omitempty"`

	// Since and Until bound the event time, inclusive.
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`

	// Limit is the maximum number of results.
	Limit int `json:"limit,omitempty"`
}

// DefaultQueryFilter returns a filter for the latest DefaultQueryLimit events.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: DefaultQueryLimit}
}

// EffectiveLimit returns Limit clamped into 1..MaxQueryLimit.
func (f QueryFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultQueryLimit
	case f.Limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return f.Limit
	}
}

// Matches reports whether event passes every filter field.
func (f QueryFilter) Matches(event *relay.Event) bool {
	if f.UserID != 0 && event.UserID != f.UserID {
		return false
	}
	if f.SessionID != "" && event.SessionID != f.SessionID {
		return false
	}
	if len(f.Types) > 0 && !containsString(f.Types, event.Type) {
		return false
	}
	if f.Since != nil && event.At.Before(*f.Since) {
		return false
	}
	if f.Until != nil && event.At.After(*f.Until) {
		return false
	}
	return true
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
