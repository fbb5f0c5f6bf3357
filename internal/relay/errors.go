// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when no session has the requested id.
	ErrSessionNotFound = errors.New("relay: session not found")

	// ErrRegistryInvariant marks a registry state that should be impossible,
	// such as a duplicate session id.
	ErrRegistryInvariant = errors.New("relay: registry invariant violated")

	// ErrMalformedClientMessage is returned by Route for frames that are not JSON.
	ErrMalformedClientMessage = errors.New("relay: malformed client message")

	// ErrNoUpstream is returned when a session has no active upstream socket.
	ErrNoUpstream = errors.New("relay: upstream not connected")

	// ErrShuttingDown is returned for session attempts after Shutdown.
	ErrShuttingDown = errors.New("relay: shutting down")
)

// DuplicateSessionError reports a session id that is already registered.
type DuplicateSessionError struct {
	SessionID string
}

func (e *DuplicateSessionError) Error() string {
	return fmt.Sprintf("relay: duplicate session id %s", e.SessionID)
}

func (e *DuplicateSessionError) Unwrap() error {
	return ErrRegistryInvariant
}

// ResolutionError reports subject refs that do not exist or that the
// requesting user may not access. Message is safe to show the client.
type ResolutionError struct {
	Subject string
	Message string
	Err     error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %s: %s: %v", e.Subject, e.Message, e.Err)
	}
	return fmt.Sprintf("resolve %s: %s", e.Subject, e.Message)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// UpstreamConnectError reports a failure to open or handshake the upstream socket.
type UpstreamConnectError struct {
	URL string
	Err error
}

func (e *UpstreamConnectError) Error() string {
	return fmt.Sprintf("upstream connect %s: %v", e.URL, e.Err)
}

func (e *UpstreamConnectError) Unwrap() error {
	return e.Err
}

// UpstreamLifecycleError reports the loss of an established upstream socket.
type UpstreamLifecycleError struct {
	SessionID string
	Err       error
}

func (e *UpstreamLifecycleError) Error() string {
	return fmt.Sprintf("upstream lost for session %s: %v", e.SessionID, e.Err)
}

func (e *UpstreamLifecycleError) Unwrap() error {
	return e.Err
}
