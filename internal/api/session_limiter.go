// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package api

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleThreshold   = time.Hour
)

// SessionLimiter bounds how often each user may open a tracking session.
// Keys are user ids; the per-IP limiter in front of the route covers
// anonymous traffic.
type SessionLimiter struct {
	limiters map[int64]*limiterEntry
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewSessionLimiter allows perMinute sessions per user with the given
// burst. perMinute <= 0 disables the limit.
func NewSessionLimiter(perMinute, burst int) *SessionLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst <= 0 {
		burst = 1
	}
	return &SessionLimiter{
		limiters: make(map[int64]*limiterEntry),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether userID may open another session now.
func (l *SessionLimiter) Allow(userID int64) bool {
	now := l.now()

	l.mu.Lock()
	entry, exists := l.limiters[userID]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// Serve periodically drops limiters for users that have gone quiet. It
// implements suture.Service.
func (l *SessionLimiter) Serve(ctx context.Context) error {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *SessionLimiter) String() string {
	return "session-limiter"
}

func (l *SessionLimiter) cleanup() {
	threshold := l.now().Add(-limiterIdleThreshold)

	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, entry := range l.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(l.limiters, userID)
		}
	}
}

func (l *SessionLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
