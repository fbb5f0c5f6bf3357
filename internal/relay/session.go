// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/trackrelay/internal/websocket"
)

// State is a session lifecycle state. States only move forward.
type State int32

const (
	StateInitializing State = iota
	StateConnectingUpstream
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateConnectingUpstream:
		return "CONNECTING_UPSTREAM"
	case StateActive:
		return "ACTIVE"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// SubjectRefs identify the person to track and the video to track them in.
type SubjectRefs struct {
	PersonID int64 `json:"personId"`
	VideoID  int64 `json:"videoId"`
}

// Session is one client-to-upstream relay relationship.
//
// The session exclusively owns both sockets. State and socket references are
// guarded by mu; the sockets serialize their own writes.
type Session struct {
	ID        string
	UserID    int64
	Refs      SubjectRefs
	Subject   interface{} // resolved subject, opaque to the relay
	CreatedAt time.Time

	mu       sync.Mutex
	state    State
	client   *websocket.Socket
	upstream *websocket.Socket

	lastActivity atomic.Int64 // unix nanoseconds

	ctx    context.Context
	cancel context.CancelFunc

	// acked is closed once the connected frame has been written, so nothing
	// else reaches the client before it.
	acked   chan struct{}
	ackOnce sync.Once
	done    chan struct{}
}

func newSession(parent context.Context, id string, userID int64, refs SubjectRefs, subject interface{}, client *websocket.Socket, now time.Time) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		ID:        id,
		UserID:    userID,
		Refs:      refs,
		Subject:   subject,
		CreatedAt: now,
		state:     StateInitializing,
		client:    client,
		ctx:       ctx,
		cancel:    cancel,
		acked:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Context is canceled when the session begins closing.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Done is closed once the session is CLOSED.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// LastActivity returns the time of the last frame seen in either direction.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Touch records session activity.
func (s *Session) Touch(now time.Time) {
	s.lastActivity.Store(now.UnixNano())
}

// Client returns the client socket, or nil once the session is CLOSED.
func (s *Session) Client() *websocket.Socket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Upstream returns the upstream socket, or nil if not yet attached or CLOSED.
func (s *Session) Upstream() *websocket.Socket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upstream
}

// advance moves the session to next if that is a forward transition.
func (s *Session) advance(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next <= s.state || s.state >= StateClosing {
		return false
	}
	s.state = next
	return true
}

// beginClose moves the session to CLOSING. Only the first caller gets true.
func (s *Session) beginClose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state >= StateClosing {
		return false
	}
	s.state = StateClosing
	return true
}

func (s *Session) isClosing() bool {
	return s.State() >= StateClosing
}

// attachUpstream stores the upstream socket unless the session is closing.
func (s *Session) attachUpstream(upstream *websocket.Socket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state >= StateClosing {
		return false
	}
	s.upstream = upstream
	return true
}

// activeUpstream returns the upstream socket only while the session is ACTIVE.
func (s *Session) activeUpstream() *websocket.Socket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return nil
	}
	return s.upstream
}

// release drops both socket references and marks the session CLOSED.
func (s *Session) release() {
	s.mu.Lock()
	s.state = StateClosed
	s.client = nil
	s.upstream = nil
	s.mu.Unlock()
	close(s.done)
}

func (s *Session) markAcked() {
	s.ackOnce.Do(func() { close(s.acked) })
}

// waitAcked blocks until the connected frame is written. It returns false if
// the session starts closing first.
func (s *Session) waitAcked() bool {
	select {
	case <-s.acked:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// notifyClient writes a control frame to the client if it is still open.
func (s *Session) notifyClient(frame ControlFrame) error {
	client := s.Client()
	if client == nil || !client.IsOpen() {
		return websocket.ErrClosed
	}
	return client.SendJSON(frame)
}

// SessionInfo is a point-in-time view of a session.
type SessionInfo struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	PersonID     int64     `json:"person_id"`
	VideoID      int64     `json:"video_id"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Info returns a snapshot of the session.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:           s.ID,
		UserID:       s.UserID,
		PersonID:     s.Refs.PersonID,
		VideoID:      s.Refs.VideoID,
		State:        s.State().String(),
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity(),
	}
}
