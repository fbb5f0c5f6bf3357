// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

/*
Package websocket provides the socket primitives shared by both ends of a relay
session: the browser-facing client connection and the upstream tracking
service connection.

It wraps gorilla/websocket connections in a Socket that:

  - serializes writes, since gorilla permits a single concurrent writer
  - closes exactly once, sending a close frame only if the peer is still there
  - applies read limits and pong-driven read deadlines
  - sends keep-alive pings on a fixed period

Timing constants follow the usual gorilla pattern:

	WriteWait  = 10s  time allowed to write a frame
	PongWait   = 60s  time allowed between pongs
	PingPeriod = 54s  must be less than PongWait

Close codes 4001 (session replaced) and 4003 (idle timeout) are application
codes carried in close frames. When the upstream side ends a session the
client socket is left open and only receives the error or disconnected
frame.
*/
package websocket
