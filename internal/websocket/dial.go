// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// DialFunc opens a client connection to rawURL.
type DialFunc func(ctx context.Context, rawURL string) (Conn, error)

// NewDialer returns a DialFunc backed by a gorilla dialer with the given
// handshake timeout. The context bounds the TCP connect and the handshake;
// it has no effect on the connection once returned.
func NewDialer(handshakeTimeout time.Duration) DialFunc {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	return func(ctx context.Context, rawURL string) (Conn, error) {
		conn, resp, err := dialer.DialContext(ctx, rawURL, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("dial %s: handshake status %d: %w", rawURL, resp.StatusCode, err)
			}
			return nil, fmt.Errorf("dial %s: %w", rawURL, err)
		}
		return conn, nil
	}
}
