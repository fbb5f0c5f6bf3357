// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/trackrelay/internal/relay"
)

// MemoryStore implements Store in memory. The oldest events are dropped
// once maxLen is reached.
type MemoryStore struct {
	mu     sync.RWMutex
	events []relay.Event
	maxLen int
}

// NewMemoryStore creates a new in-memory store. maxLen <= 0 means 10000.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{
		events: make([]relay.Event, 0, 64),
		maxLen: maxLen,
	}
}

// Save appends event, keeping the slice ordered by time.
func (s *MemoryStore) Save(_ context.Context, event relay.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].At.After(event.At)
	})
	s.events = append(s.events, relay.Event{})
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = event

	if len(s.events) > s.maxLen {
		s.events = s.events[len(s.events)-s.maxLen:]
	}
	return nil
}

// Query returns the newest matching events, oldest first.
func (s *MemoryStore) Query(_ context.Context, filter QueryFilter) ([]relay.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.EffectiveLimit()
	var matched []relay.Event
	for i := len(s.events) - 1; i >= 0 && len(matched) < limit; i-- {
		if filter.Matches(&s.events[i]) {
			matched = append(matched, s.events[i])
		}
	}
	reverse(matched)
	return matched, nil
}

// Delete removes events older than olderThan.
func (s *MemoryStore) Delete(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].At.Before(olderThan)
	})
	s.events = append(s.events[:0], s.events[i:]...)
	return int64(i), nil
}

// Len returns the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
