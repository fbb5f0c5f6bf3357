// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package services

import (
	"context"
	"time"

	"github.com/tomtom215/trackrelay/internal/logging"
)

// DefaultCheckpointInterval is used when no interval is given.
const DefaultCheckpointInterval = 5 * time.Minute

// Checkpointer flushes the database WAL. Satisfied by *database.DB.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// CheckpointService periodically checkpoints the database. Failures are
// logged and retried on the next tick; they never restart the service.
type CheckpointService struct {
	db       Checkpointer
	interval time.Duration
	name     string
}

// NewCheckpointService creates the checkpoint service.
func NewCheckpointService(db Checkpointer, interval time.Duration) *CheckpointService {
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}
	return &CheckpointService{
		db:       db,
		interval: interval,
		name:     "database-checkpoint",
	}
}

// Serve implements suture.Service. A final checkpoint runs on shutdown.
func (s *CheckpointService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger := logging.WithComponent(logging.ComponentDatabase)

	for {
		select {
		case <-ticker.C:
			if err := s.db.Checkpoint(ctx); err != nil {
				logger.Warn().Err(err).Msg("Database checkpoint failed")
			}
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.db.Checkpoint(finalCtx); err != nil {
				logger.Warn().Err(err).Msg("Final database checkpoint failed")
			}
			cancel()
			return ctx.Err()
		}
	}
}

func (s *CheckpointService) String() string {
	return s.name
}
