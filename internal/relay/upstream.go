// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/metrics"
	"github.com/tomtom215/trackrelay/internal/websocket"
)

const upstreamBreakerName = "upstream"

// TeardownFunc ends a session. reason is one of the Reason constants.
type TeardownFunc func(sessionID, reason string)

// Connector opens and runs the upstream side of a session. Connect blocks
// until the upstream socket is gone and must call teardown on every path
// that ends the session from the upstream side.
type Connector interface {
	Connect(ctx context.Context, s *Session, teardown TeardownFunc)
}

// ConnectorConfig configures an UpstreamConnector.
type ConnectorConfig struct {
	BaseURL         string
	ConnectTimeout  time.Duration
	Settings        Settings
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	MaxMessageSize  int64
	PingPeriod      time.Duration
	PongWait        time.Duration

	// Dial overrides the default gorilla dialer.
	Dial websocket.DialFunc
}

// UpstreamConnector dials the tracking service for each session, sends the
// initialize handshake and relays upstream frames to the client.
type UpstreamConnector struct {
	base *url.URL
	cfg  ConnectorConfig
	dial websocket.DialFunc
	cb   *gobreaker.CircuitBreaker[websocket.Conn]
}

// NewUpstreamConnector validates cfg and builds the connector and its
// circuit breaker.
func NewUpstreamConnector(cfg ConnectorConfig) (*UpstreamConnector, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	if base.Scheme != "ws" && base.Scheme != "wss" {
		return nil, fmt.Errorf("upstream base url must use ws or wss, got %q", base.Scheme)
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.Settings == (Settings{}) {
		cfg.Settings = DefaultSettings()
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = websocket.MaxMessageSize
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = websocket.PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = (cfg.PongWait * 9) / 10
	}

	dial := cfg.Dial
	if dial == nil {
		dial = websocket.NewDialer(cfg.ConnectTimeout)
	}

	metrics.CircuitBreakerState.WithLabelValues(upstreamBreakerName).Set(0)

	failures := cfg.BreakerFailures
	cb := gobreaker.NewCircuitBreaker[websocket.Conn](gobreaker.Settings{
		Name:        upstreamBreakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,

		// Opens after N consecutive dial failures
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			shouldTrip := counts.ConsecutiveFailures >= failures
			if shouldTrip {
				logging.Warn().
					Str("breaker", upstreamBreakerName).
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},

		// A session torn down mid-dial says nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &UpstreamConnector{
		base: base,
		cfg:  cfg,
		dial: dial,
		cb:   cb,
	}, nil
}

// Endpoint returns the upstream address for a session.
func (u *UpstreamConnector) Endpoint(sessionID string) string {
	return u.base.JoinPath("video-stream", sessionID).String()
}

// Settings returns the tracker settings sent in every initialize frame.
func (u *UpstreamConnector) Settings() Settings {
	return u.cfg.Settings
}

// BreakerState returns the circuit breaker state name.
func (u *UpstreamConnector) BreakerState() string {
	return stateToString(u.cb.State())
}

// Connect implements Connector.
func (u *UpstreamConnector) Connect(ctx context.Context, s *Session, teardown TeardownFunc) {
	endpoint := u.Endpoint(s.ID)
	logger := logging.WithComponent(logging.ComponentUpstream).With().
		Str(logging.FieldSessionID, s.ID).
		Str(logging.FieldUpstream, endpoint).
		Logger()

	conn, err := u.dialUpstream(ctx, endpoint)
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug().Err(err).Msg("Upstream dial abandoned, session already closing")
			return
		}
		connectErr := &UpstreamConnectError{URL: endpoint, Err: err}
		logger.Warn().Err(connectErr).Msg("Failed to connect to upstream")
		u.fail(s, teardown, ReasonUpstreamFailed, errorFrame(MsgUpstreamUnreachable))
		return
	}

	upstream := websocket.NewSocket(conn)
	if !s.attachUpstream(upstream) {
		logger.Debug().Msg("Session closed while dialing, discarding upstream")
		upstream.Close(websocket.CloseNormalClosure, "")
		return
	}

	initFrame := InitializeFrame{
		Type:     FrameInitialize,
		Subject:  s.Subject,
		Settings: u.cfg.Settings,
	}
	if err := upstream.SendJSON(initFrame); err != nil {
		if s.isClosing() {
			return
		}
		connectErr := &UpstreamConnectError{URL: endpoint, Err: fmt.Errorf("send initialize: %w", err)}
		logger.Warn().Err(connectErr).Msg("Upstream handshake failed")
		u.fail(s, teardown, ReasonUpstreamFailed, errorFrame(MsgUpstreamUnreachable))
		return
	}

	if !s.advance(StateActive) {
		return
	}
	logger.Info().Msg("Connected to upstream tracking service")

	u.relay(s, upstream, teardown)
}

// dialUpstream dials through the circuit breaker and records the outcome.
func (u *UpstreamConnector) dialUpstream(ctx context.Context, endpoint string) (websocket.Conn, error) {
	start := time.Now()
	conn, err := u.cb.Execute(func() (websocket.Conn, error) {
		dialCtx, cancel := context.WithTimeout(ctx, u.cfg.ConnectTimeout)
		defer cancel()
		return u.dial(dialCtx, endpoint)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordUpstreamDial("rejected", 0)
	case err != nil:
		metrics.RecordUpstreamDial("failure", time.Since(start))
	default:
		metrics.RecordUpstreamDial("success", time.Since(start))
	}
	return conn, err
}

// relay copies upstream frames to the client until the upstream read fails.
// A delivered frame counts as session activity, so a client that only
// watches results is not reaped as idle.
func (u *UpstreamConnector) relay(s *Session, upstream *websocket.Socket, teardown TeardownFunc) {
	conn := upstream.Conn()
	if err := upstream.PrepareRead(u.cfg.MaxMessageSize, u.cfg.PongWait); err != nil {
		u.lost(s, upstream, teardown, err)
		return
	}
	go upstream.KeepAlive(u.cfg.PingPeriod, s.Done())

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			u.lost(s, upstream, teardown, err)
			return
		}

		if !s.waitAcked() {
			return
		}

		client := s.Client()
		if client == nil || !client.IsOpen() {
			metrics.FramesDropped.WithLabelValues(metrics.DirectionUpstreamToClient, "peer_closed").Inc()
			continue
		}
		if err := client.Send(messageType, data); err != nil {
			metrics.FramesDropped.WithLabelValues(metrics.DirectionUpstreamToClient, "peer_closed").Inc()
			continue
		}
		s.Touch(time.Now())
		metrics.FramesForwarded.WithLabelValues(metrics.DirectionUpstreamToClient).Inc()
	}
}

// lost handles the end of an established upstream socket.
func (u *UpstreamConnector) lost(s *Session, upstream *websocket.Socket, teardown TeardownFunc, err error) {
	upstream.MarkClosed()
	if s.isClosing() {
		return
	}

	logger := logging.WithComponent(logging.ComponentUpstream).With().Str(logging.FieldSessionID, s.ID).Logger()

	if websocket.IsNormalClose(err) {
		logger.Info().Msg("Upstream closed the connection")
		u.fail(s, teardown, ReasonUpstreamClosed, disconnectedFrame(MsgUpstreamDisconnected))
		return
	}

	logger.Warn().Err(&UpstreamLifecycleError{SessionID: s.ID, Err: err}).Msg("Upstream connection lost")
	u.fail(s, teardown, ReasonUpstreamLost,
		errorFrame(MsgUpstreamLost),
		disconnectedFrame(MsgUpstreamDisconnected),
	)
}

// fail notifies the client with frames, in order, then ends the session.
func (u *UpstreamConnector) fail(s *Session, teardown TeardownFunc, reason string, frames ...ControlFrame) {
	if s.waitAcked() {
		for _, frame := range frames {
			if err := s.notifyClient(frame); err != nil {
				break
			}
		}
	}
	teardown(s.ID, reason)
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
