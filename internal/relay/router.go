// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package relay

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/metrics"
	"github.com/tomtom215/trackrelay/internal/websocket"
)

// Router forwards client frames to the session's upstream. It validates
// that each frame is JSON and re-serializes it; it never interprets the
// payload.
type Router struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewRouter creates a router that looks sessions up in registry.
func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
		logger:   logging.WithComponent(logging.ComponentRelay),
	}
}

// Route forwards raw to the upstream of session id. Every failure drops the
// frame; the returned error is informational and never closes a socket.
func (r *Router) Route(id string, raw []byte) error {
	s, err := r.registry.Get(id)
	if err != nil {
		r.drop(id, "no_session", err)
		return err
	}

	upstream := s.activeUpstream()
	if upstream == nil || !upstream.IsOpen() {
		r.drop(id, "no_upstream", ErrNoUpstream)
		return ErrNoUpstream
	}

	if !json.Valid(raw) {
		r.drop(id, "malformed", ErrMalformedClientMessage)
		return ErrMalformedClientMessage
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		r.drop(id, "malformed", err)
		return fmt.Errorf("%w: %v", ErrMalformedClientMessage, err)
	}

	if err := upstream.Send(websocket.TextMessage, buf.Bytes()); err != nil {
		r.drop(id, "peer_closed", err)
		return fmt.Errorf("forward to upstream: %w", err)
	}

	metrics.FramesForwarded.WithLabelValues(metrics.DirectionClientToUpstream).Inc()
	return nil
}

func (r *Router) drop(id, reason string, err error) {
	metrics.FramesDropped.WithLabelValues(metrics.DirectionClientToUpstream, reason).Inc()
	r.logger.Debug().
		Str(logging.FieldSessionID, id).
		Str("reason", reason).
		Err(err).
		Msg("Dropped client frame")
}
