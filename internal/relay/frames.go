// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package relay

// Frame types sent to the client.
const (
	FrameConnected       = "connected"
	FrameError           = "error"
	FrameDisconnected    = "disconnected"
	FrameReplaced        = "replaced"
	FrameTrackingStopped = "tracking_stopped"
)

// Frame types sent to the upstream service.
const (
	FrameInitialize   = "initialize"
	FrameStopTracking = "stop_tracking"
)

// Client-facing messages.
const (
	MsgConnected            = "Connected to video tracking service"
	MsgInitFailed           = "Failed to initialize connection"
	MsgUpstreamUnreachable  = "Failed to connect to AI service"
	MsgUpstreamLost         = "Connection to AI service lost"
	MsgUpstreamDisconnected = "AI service disconnected"
	MsgReplaced             = "Session replaced by a newer connection"
	MsgIdleTimeout          = "Session idle timeout"
	MsgShuttingDown         = "Server shutting down"
)

// ControlFrame is a relay-generated frame for the client. Forwarded upstream
// payloads never pass through this type.
type ControlFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Settings tune the upstream tracker for one session.
type Settings struct {
	FPSLimit            int     `json:"fps_limit"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// DefaultSettings returns the tracker settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		FPSLimit:            10,
		ConfidenceThreshold: 0.8,
	}
}

// InitializeFrame is the first frame written to every upstream socket.
type InitializeFrame struct {
	Type     string      `json:"type"`
	Subject  interface{} `json:"subject"`
	Settings Settings    `json:"settings"`
}

// StopTrackingFrame asks the upstream to stop processing the session's video.
type StopTrackingFrame struct {
	Type string `json:"type"`
}

func connectedFrame(sessionID string) ControlFrame {
	return ControlFrame{Type: FrameConnected, SessionID: sessionID, Message: MsgConnected}
}

func errorFrame(message string) ControlFrame {
	return ControlFrame{Type: FrameError, Message: message}
}

func disconnectedFrame(message string) ControlFrame {
	return ControlFrame{Type: FrameDisconnected, Message: message}
}

func replacedFrame() ControlFrame {
	return ControlFrame{Type: FrameReplaced, Message: MsgReplaced}
}
