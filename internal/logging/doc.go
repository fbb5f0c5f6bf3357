// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

// Package logging provides centralized zerolog-based structured logging for Trackrelay.
//
// JSON output is the production default; console output is for development.
//
// # Quick Start
//
//	import "github.com/tomtom215/trackrelay/internal/logging"
//
//	// Initialize at application startup
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Caller: false,
//	})
//
//	logging.Info().Str(logging.FieldSessionID, id).Msg("Session opened")
//	logging.Error().Err(err).Msg("Upstream dial failed")
//
// # Configuration
//
// Environment Variables:
//
//	LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - Output format: json, console (default: json)
//	LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// # Structured Logging
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// Use the Field* constants for keys that recur across packages so session
// logs can be joined on session_id, user_id, person_id and video_id.
//
// # Component Loggers
//
//	logger := logging.WithComponent(logging.ComponentRelay)
//	logger.Info().Msg("Session registered")
//
// # Context-Aware Logging
//
// Ctx returns a logger carrying the request ID and user ID stored on the
// context by the request ID and authentication middleware:
//
//	logging.Ctx(r.Context()).Info().Msg("Stop tracking requested")
//
// # slog Adapter
//
// NewSlogLogger bridges to libraries that take *slog.Logger, such as the
// Suture supervisor tree:
//
//	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg)
//
// # Security Logging
//
// SecurityLogger records login, logout and authorization events with emails
// and tokens masked:
//
//	sec := logging.NewSecurityLogger()
//	sec.LogLoginFailure(0, req.Email, ip, r.UserAgent(), "unknown email")
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. The global logger
// is protected by sync.RWMutex for configuration changes.
package logging
