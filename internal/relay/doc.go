// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

/*
Package relay implements the dual-endpoint session relay between a browser
client and the upstream video tracking service.

A session pairs one client socket with one upstream socket:

	client ──► Router ──► upstream      (JSON validated, compacted)
	client ◄──────────── upstream       (forwarded verbatim)

Components:

  - Registry: session id to Session map, the only shared mutable state
  - Manager: creates sessions, enforces one session per user by eviction,
    tears sessions down on any failure path
  - UpstreamConnector: dials the tracking service through a circuit
    breaker, sends the initialize handshake, relays upstream frames
  - Router: forwards client frames to an ACTIVE session's upstream
  - Reaper: optional idle-session timeout

Session states move forward only:

	INITIALIZING → CONNECTING_UPSTREAM → ACTIVE → CLOSING → CLOSED

A CLOSED session holds no socket references and is no longer registered.
The connected frame is always the first frame a client receives, and the
initialize frame is always the first frame the upstream receives.

Client-facing failures are always JSON control frames:

	{"type":"connected","sessionId":"...","message":"Connected to video tracking service"}
	{"type":"error","message":"Connection to AI service lost"}
	{"type":"disconnected","message":"AI service disconnected"}
	{"type":"replaced","message":"Session replaced by a newer connection"}
*/
package relay
