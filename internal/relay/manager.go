// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/metrics"
	"github.com/tomtom215/trackrelay/internal/websocket"
)

// Teardown reasons, also used as metric labels and event reasons.
const (
	ReasonClientClosed   = "client_closed"
	ReasonUpstreamClosed = "upstream_closed"
	ReasonUpstreamLost   = "upstream_lost"
	ReasonUpstreamFailed = "upstream_failed"
	ReasonEvicted        = "evicted"
	ReasonIdle           = "idle"
	ReasonShutdown       = "shutdown"
	ReasonInternal       = "internal"
	ReasonStopped        = "stopped"
)

// SubjectResolver loads the subject a session tracks. Failures the client
// should see are returned as *ResolutionError; anything else is reported
// as an internal failure.
type SubjectResolver interface {
	Resolve(ctx context.Context, userID int64, refs SubjectRefs) (interface{}, error)
}

// Options configures a Manager.
type Options struct {
	Registry  *Registry
	Resolver  SubjectResolver
	Connector Connector
	Events    EventSink // optional

	MaxMessageSize int64
	PingPeriod     time.Duration
	PongWait       time.Duration

	NewID func() string
	Now   func() time.Time
}

// Manager creates and tears down relay sessions. It is the only component
// that adds or removes registry entries.
type Manager struct {
	registry  *Registry
	resolver  SubjectResolver
	connector Connector
	router    *Router
	events    EventSink

	maxMessageSize int64
	pingPeriod     time.Duration
	pongWait       time.Duration
	newID          func() string
	now            func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	locks  *userLocks
	logger zerolog.Logger

	// mu guards stopped, detached and wg.Add so no goroutine starts
	// after Shutdown
	mu       sync.Mutex
	stopped  bool
	detached map[*websocket.Socket]struct{}
	wg       sync.WaitGroup
}

// NewManager builds a Manager from opts.
func NewManager(opts Options) (*Manager, error) {
	if opts.Registry == nil {
		return nil, errors.New("relay: registry is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("relay: subject resolver is required")
	}
	if opts.Connector == nil {
		return nil, errors.New("relay: upstream connector is required")
	}

	m := &Manager{
		registry:       opts.Registry,
		resolver:       opts.Resolver,
		connector:      opts.Connector,
		router:         NewRouter(opts.Registry),
		events:         opts.Events,
		maxMessageSize: opts.MaxMessageSize,
		pingPeriod:     opts.PingPeriod,
		pongWait:       opts.PongWait,
		newID:          opts.NewID,
		now:            opts.Now,
		locks:          newUserLocks(),
		detached:       make(map[*websocket.Socket]struct{}),
		logger:         logging.WithComponent(logging.ComponentRelay),
	}
	if m.maxMessageSize <= 0 {
		m.maxMessageSize = websocket.MaxMessageSize
	}
	if m.pongWait <= 0 {
		m.pongWait = websocket.PongWait
	}
	if m.pingPeriod <= 0 || m.pingPeriod >= m.pongWait {
		m.pingPeriod = (m.pongWait * 9) / 10
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	return m, nil
}

// Registry returns the registry the manager owns entries in.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Router returns the client message router.
func (m *Manager) Router() *Router {
	return m.router
}

// CreateSession resolves refs, evicts any session userID already has,
// registers a new session and starts both relay directions. The client
// receives a connected frame carrying the session id.
//
// On failure the client has been sent an error frame and closed, and no
// session remains registered.
func (m *Manager) CreateSession(ctx context.Context, conn websocket.Conn, userID int64, refs SubjectRefs) (string, error) {
	s, err := m.createSession(ctx, conn, userID, refs)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

// Serve runs a session to completion. It returns once the session is CLOSED.
func (m *Manager) Serve(ctx context.Context, conn websocket.Conn, userID int64, refs SubjectRefs) error {
	s, err := m.createSession(ctx, conn, userID, refs)
	if err != nil {
		return err
	}
	<-s.Done()
	return nil
}

// Reject sends an error frame to a connection that will never become a
// session and closes it.
func (m *Manager) Reject(conn websocket.Conn, message string) {
	m.rejectSocket(websocket.NewSocket(conn), "invalid_params", message)
}

func (m *Manager) createSession(ctx context.Context, conn websocket.Conn, userID int64, refs SubjectRefs) (*Session, error) {
	client := websocket.NewSocket(conn)
	logger := m.logger.With().
		Int64(logging.FieldUserID, userID).
		Int64(logging.FieldPersonID, refs.PersonID).
		Int64(logging.FieldVideoID, refs.VideoID).
		Logger()

	if m.isStopped() {
		m.rejectSocket(client, "internal", MsgShuttingDown)
		return nil, ErrShuttingDown
	}

	subject, err := m.resolver.Resolve(ctx, userID, refs)
	if err != nil {
		var resErr *ResolutionError
		if errors.As(err, &resErr) {
			logger.Info().Err(err).Msg("Subject resolution rejected session")
			m.rejectSocket(client, "resolution", resErr.Message)
			return nil, err
		}
		logger.Error().Err(err).Msg("Subject resolution failed")
		m.rejectSocket(client, "internal", MsgInitFailed)
		return nil, fmt.Errorf("resolve subject: %w", err)
	}

	s, err := m.register(userID, refs, subject, client)
	if err != nil {
		logger.Error().Err(err).Msg("Session registration failed")
		m.rejectSocket(client, "internal", MsgInitFailed)
		return nil, err
	}
	logger = logger.With().Str(logging.FieldSessionID, s.ID).Logger()

	started := false
	defer func() {
		if !started {
			m.teardown(s, ReasonInternal, nil)
		}
	}()

	if err := client.PrepareRead(m.maxMessageSize, m.pongWait); err != nil {
		return nil, fmt.Errorf("prepare client socket: %w", err)
	}

	if !s.advance(StateConnectingUpstream) {
		return nil, fmt.Errorf("session %s closed during creation", s.ID)
	}

	if !m.spawn(
		func() { m.connector.Connect(s.Context(), s, m.Teardown) },
		func() { m.readClient(s, client) },
		func() { client.KeepAlive(m.pingPeriod, s.Done()) },
	) {
		return nil, ErrShuttingDown
	}

	if err := client.SendJSON(connectedFrame(s.ID)); err != nil {
		return nil, fmt.Errorf("send connected frame: %w", err)
	}
	s.markAcked()
	started = true

	m.publish(EventSessionCreated, s, "")
	logger.Info().Msg("Relay session created")
	return s, nil
}

// register evicts userID's existing session and registers a new one. The
// per-user lock makes eviction and registration one step for that user.
func (m *Manager) register(userID int64, refs SubjectRefs, subject interface{}, client *websocket.Socket) (*Session, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	if old := m.registry.FindByUser(userID); old != nil {
		m.evict(old)
	}

	s := newSession(m.ctx, m.newID(), userID, refs, subject, client, m.now())
	if err := m.registry.Register(s); err != nil {
		s.cancel()
		return nil, err
	}

	metrics.SessionsCreated.Inc()
	metrics.SessionsActive.Set(float64(m.registry.Len()))
	return s, nil
}

// evict closes a session replaced by a newer one for the same user.
func (m *Manager) evict(old *Session) {
	replaced := replacedFrame()
	if m.teardown(old, ReasonEvicted, &replaced) {
		m.logger.Info().
			Str(logging.FieldSessionID, old.ID).
			Int64(logging.FieldUserID, old.UserID).
			Msg("Evicted previous session for user")
	}
}

// Teardown ends the session with the given id. It is safe to call any
// number of times from any goroutine.
func (m *Manager) Teardown(id, reason string) {
	s, err := m.registry.Get(id)
	if err != nil {
		return
	}
	m.teardown(s, reason, nil)
}

// teardown closes s. notice, if set, is sent to the client first. Only the
// call that moves the session to CLOSING does any work; it returns true.
//
// When the upstream side ended the session the client socket stays open so
// the client can decide whether to reconnect. Its read loop keeps running
// until the client closes or the read deadline lapses, since keep-alive
// pings stop with the session.
func (m *Manager) teardown(s *Session, reason string, notice *ControlFrame) bool {
	if !s.beginClose() {
		return false
	}
	s.cancel()

	upstream := s.Upstream()
	client := s.Client()

	if notice != nil {
		if err := s.notifyClient(*notice); err != nil {
			m.noticeFailed(s, reason, err)
		}
	}

	if upstream != nil {
		upstream.Close(websocket.CloseNormalClosure, "")
	}

	m.registry.Remove(s.ID)
	metrics.SessionsActive.Set(float64(m.registry.Len()))

	if client != nil {
		if keepsClientOpen(reason) {
			m.detach(client)
		} else {
			client.Close(closeCode(reason), "")
		}
	}
	s.release()

	metrics.RecordSessionClosed(reason, m.now().Sub(s.CreatedAt))
	if reason == ReasonEvicted {
		m.publish(EventSessionEvicted, s, reason)
	} else {
		m.publish(EventSessionClosed, s, reason)
	}

	m.logger.Info().
		Str(logging.FieldSessionID, s.ID).
		Int64(logging.FieldUserID, s.UserID).
		Str("reason", reason).
		Msg("Relay session closed")
	return true
}

func (m *Manager) noticeFailed(s *Session, reason string, err error) {
	if reason == ReasonEvicted {
		metrics.EvictionNotifyFailures.Inc()
		m.logger.Warn().
			Err(err).
			Str(logging.FieldSessionID, s.ID).
			Int64(logging.FieldUserID, s.UserID).
			Msg("Failed to notify evicted client")
		return
	}
	m.logger.Debug().
		Err(err).
		Str(logging.FieldSessionID, s.ID).
		Str("reason", reason).
		Msg("Failed to notify client before close")
}

// readClient routes client frames until the client goes away, then tears
// the session down.
func (m *Manager) readClient(s *Session, client *websocket.Socket) {
	defer func() {
		m.Teardown(s.ID, ReasonClientClosed)
		m.releaseDetached(client)
	}()

	conn := client.Conn()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			client.MarkClosed()
			if websocket.IsUnexpectedClose(err) && !s.isClosing() {
				m.logger.Debug().Err(err).Str(logging.FieldSessionID, s.ID).Msg("Client read error")
			}
			return
		}
		s.Touch(m.now())
		_ = m.router.Route(s.ID, data)
	}
}

// StopTracking sends stop_tracking upstream and tracking_stopped to the
// client. The session stays open.
func (m *Manager) StopTracking(id string) error {
	s, err := m.registry.Get(id)
	if err != nil {
		return err
	}

	if upstream := s.activeUpstream(); upstream != nil {
		if err := upstream.SendJSON(StopTrackingFrame{Type: FrameStopTracking}); err != nil {
			m.logger.Debug().Err(err).Str(logging.FieldSessionID, id).Msg("Failed to send stop_tracking upstream")
		}
	}
	if err := s.notifyClient(ControlFrame{Type: FrameTrackingStopped}); err != nil {
		m.logger.Debug().Err(err).Str(logging.FieldSessionID, id).Msg("Failed to send tracking_stopped to client")
	}

	m.publish(EventTrackingStopped, s, ReasonStopped)
	m.logger.Info().Str(logging.FieldSessionID, id).Msg("Tracking stopped")
	return nil
}

// SessionForUser returns the live session owned by userID.
func (m *Manager) SessionForUser(userID int64) (*Session, error) {
	s := m.registry.FindByUser(userID)
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ReapIdle tears down sessions with no client activity for longer than
// timeout. It returns the number of sessions closed.
func (m *Manager) ReapIdle(now time.Time, timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}

	reaped := 0
	for _, s := range m.registry.List() {
		if now.Sub(s.LastActivity()) <= timeout {
			continue
		}
		notice := disconnectedFrame(MsgIdleTimeout)
		if m.teardown(s, ReasonIdle, &notice) {
			reaped++
		}
	}
	return reaped
}

// Shutdown tears down every session and waits for relay goroutines to
// finish or ctx to expire. New sessions are refused afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	notice := disconnectedFrame(MsgShuttingDown)
	for _, s := range m.registry.List() {
		m.teardown(s, ReasonShutdown, &notice)
	}

	m.mu.Lock()
	detached := make([]*websocket.Socket, 0, len(m.detached))
	for client := range m.detached {
		detached = append(detached, client)
	}
	m.mu.Unlock()
	for _, client := range detached {
		client.Close(websocket.CloseGoingAway, "")
	}
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DetachedClients returns the number of client sockets still open after
// their session ended upstream.
func (m *Manager) DetachedClients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.detached)
}

// detach keeps client open after its session ended. The read loop marks
// the socket closed before releasing it, so a client whose loop already
// ended is never added.
func (m *Manager) detach(client *websocket.Socket) {
	m.mu.Lock()
	stopped := m.stopped
	if !stopped && client.IsOpen() {
		m.detached[client] = struct{}{}
	}
	m.mu.Unlock()
	if stopped {
		client.Close(websocket.CloseGoingAway, "")
	}
}

// releaseDetached closes a client socket whose read loop has ended.
func (m *Manager) releaseDetached(client *websocket.Socket) {
	m.mu.Lock()
	delete(m.detached, client)
	m.mu.Unlock()
	client.Close(websocket.CloseNormalClosure, "")
}

func (m *Manager) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// spawn starts fns as tracked goroutines unless the manager is stopped.
func (m *Manager) spawn(fns ...func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	m.wg.Add(len(fns))
	for _, fn := range fns {
		go func(fn func()) {
			defer m.wg.Done()
			fn()
		}(fn)
	}
	return true
}

func (m *Manager) rejectSocket(client *websocket.Socket, reason, message string) {
	metrics.SessionsRejected.WithLabelValues(reason).Inc()
	_ = client.SendJSON(errorFrame(message))
	client.Close(websocket.CloseNormalClosure, "")
}

func (m *Manager) publish(eventType string, s *Session, reason string) {
	if m.events == nil {
		return
	}
	m.events.Publish(Event{
		Type:      eventType,
		SessionID: s.ID,
		UserID:    s.UserID,
		PersonID:  s.Refs.PersonID,
		VideoID:   s.Refs.VideoID,
		Reason:    reason,
		At:        m.now(),
	})
}

// keepsClientOpen reports whether a teardown for reason leaves the client
// socket open.
func keepsClientOpen(reason string) bool {
	switch reason {
	case ReasonUpstreamClosed, ReasonUpstreamLost, ReasonUpstreamFailed:
		return true
	default:
		return false
	}
}

func closeCode(reason string) int {
	switch reason {
	case ReasonEvicted:
		return websocket.CloseSessionReplaced
	case ReasonIdle:
		return websocket.CloseIdleTimeout
	case ReasonShutdown:
		return websocket.CloseGoingAway
	default:
		return websocket.CloseNormalClosure
	}
}

// userLocks hands out one mutex per user id, dropped when unused.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
