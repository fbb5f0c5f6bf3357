// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package websocket

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 512 * 1024 // 512 KB
)

// Application close codes (RFC 6455 reserves 4000-4999 for private use).
const (
	CloseSessionReplaced = 4001
	CloseIdleTimeout     = 4003
)

// Message types and standard close codes re-exported so callers do not
// import gorilla directly.
const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage

	CloseNormalClosure = websocket.CloseNormalClosure
	CloseGoingAway     = websocket.CloseGoingAway
)

// ErrClosed is returned when writing to a socket that has been closed.
var ErrClosed = errors.New("websocket: socket closed")

// Conn is the subset of *websocket.Conn used by Socket.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Socket serializes writes to one connection and makes closing idempotent.
// gorilla allows one concurrent writer; every frame sent through a Socket
// is written in call order. Close and WriteControl may run concurrently
// with a pending write.
type Socket struct {
	conn      Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewSocket wraps an open connection.
func NewSocket(conn Conn) *Socket {
	return &Socket{conn: conn}
}

// Conn returns the underlying connection for reading.
func (s *Socket) Conn() Conn {
	return s.conn
}

// IsOpen reports whether the socket is still usable for writes.
func (s *Socket) IsOpen() bool {
	return !s.closed.Load()
}

// MarkClosed flags the socket as unusable without sending a close frame.
// Read loops call this when the peer has gone away.
func (s *Socket) MarkClosed() {
	s.closed.Store(true)
}

// Send writes one data frame.
func (s *Socket) Send(messageType int, data []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(WriteWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

// SendJSON encodes v and writes it as a text frame.
func (s *Socket) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Send(TextMessage, data)
}

// Ping sends a ping control frame.
func (s *Socket) Ping() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteWait))
}

// Close sends a close frame with the given code and closes the connection.
// Only the first call has an effect; it returns true for that call.
func (s *Socket) Close(code int, text string) bool {
	first := false
	s.closeOnce.Do(func() {
		first = true
		wasOpen := !s.closed.Swap(true)
		if wasOpen {
			msg := websocket.FormatCloseMessage(code, text)
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(WriteWait))
		}
		_ = s.conn.Close()
	})
	return first
}

// PrepareRead applies the read limit and installs a pong handler that
// extends the read deadline by pongWait.
func (s *Socket) PrepareRead(limit int64, pongWait time.Duration) error {
	s.conn.SetReadLimit(limit)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return nil
}

// KeepAlive pings the peer every interval until stop is closed or a ping
// fails. A failed ping leaves the read loop to notice the dead connection.
func (s *Socket) KeepAlive(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.Ping(); err != nil {
				return
			}
		}
	}
}

// IsNormalClose reports whether err is a close frame for an orderly shutdown.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// IsUnexpectedClose reports whether err is anything other than an orderly
// or abnormal-but-common close. Used to pick a log level.
func IsUnexpectedClose(err error) bool {
	return websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
	)
}
