// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package relay

import (
	"context"
	"time"

	"github.com/tomtom215/trackrelay/internal/logging"
)

// Reaper periodically tears down sessions idle for longer than the timeout.
// It implements suture.Service.
type Reaper struct {
	manager  *Manager
	timeout  time.Duration
	interval time.Duration
}

// NewReaper creates a reaper. A zero timeout disables reaping; the service
// then just waits for shutdown.
func NewReaper(manager *Manager, timeout, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reaper{
		manager:  manager,
		timeout:  timeout,
		interval: interval,
	}
}

// Serve runs until ctx is canceled.
func (r *Reaper) Serve(ctx context.Context) error {
	if r.timeout <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	logger := logging.WithComponent(logging.ComponentReaper)
	logger.Info().Dur("idle_timeout", r.timeout).Dur("interval", r.interval).Msg("Idle session reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if n := r.manager.ReapIdle(now, r.timeout); n > 0 {
				logger.Info().Int("reaped", n).Msg("Closed idle sessions")
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (r *Reaper) String() string {
	return "idle-reaper"
}
