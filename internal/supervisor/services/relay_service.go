// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package services

import (
	"context"
	"fmt"
	"time"
)

// Drainer closes every live session. Satisfied by *relay.Manager.
type Drainer interface {
	Shutdown(ctx context.Context) error
}

// RelayDrainService holds the relay open while the tree runs and drains
// it once the tree stops. Sessions get a disconnected frame and a close
// before the process exits.
type RelayDrainService struct {
	drainer Drainer
	timeout time.Duration
	name    string
}

// NewRelayDrainService creates the drain service. A non-positive timeout
// means 5 seconds.
func NewRelayDrainService(drainer Drainer, timeout time.Duration) *RelayDrainService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RelayDrainService{
		drainer: drainer,
		timeout: timeout,
		name:    "relay-drain",
	}
}

// Serve implements suture.Service.
func (s *RelayDrainService) Serve(ctx context.Context) error {
	<-ctx.Done()

	drainCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.drainer.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("relay drain failed: %w", err)
	}
	return ctx.Err()
}

func (s *RelayDrainService) String() string {
	return s.name
}
