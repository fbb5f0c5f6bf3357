// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/trackrelay/internal/logging"
)

// Retention deletes events older than its retention period on a fixed
// interval. It runs as a supervised service.
type Retention struct {
	store     Store
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewRetention creates a retention sweeper. interval <= 0 means one hour.
func NewRetention(store Store, retention, interval time.Duration) *Retention {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Retention{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Serve implements suture.Service. The first sweep runs immediately.
func (r *Retention) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.sweep(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Retention) sweep(ctx context.Context) {
	cutoff := r.now().Add(-r.retention)
	deleted, err := r.store.Delete(ctx, cutoff)
	logger := logging.WithComponent(logging.ComponentEvents)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn().Err(err).Msg("Session event retention sweep failed")
		}
		return
	}
	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Expired session events removed")
	}
}

// String implements fmt.Stringer for suture logging.
func (r *Retention) String() string {
	return "session-event-retention"
}
