// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// Security event names.
const (
	SecurityEventLoginSuccess   = "login_success"
	SecurityEventLoginFailure   = "login_failure"
	SecurityEventLogout         = "logout"
	SecurityEventAccessDenied   = "access_denied"
	SecurityEventOriginRejected = "origin_rejected"
)

// SecurityEvent represents a security-relevant event for audit logging.
type SecurityEvent struct {
	// Event is one of the SecurityEvent* names.
	Event string
	// UserID is the user's identifier, 0 when unknown.
	UserID int64
	// Email is the submitted or resolved email; it is masked before logging.
	Email string
	// IPAddress is the client's IP address.
	IPAddress string
	// UserAgent is the client's user agent (truncated).
	UserAgent string
	// Success indicates if the operation was successful.
	Success bool
	// Reason explains a failure.
	Reason string
	// Details contains additional fields, sanitized by key.
	Details map[string]string
}

// SecurityLogger logs authentication and authorization events. Sensitive
// values are masked before they reach the log.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str(FieldComponent, ComponentAuth).Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str(FieldComponent, ComponentAuth).Logger(),
	}
}

// LogEvent logs a security event. Failures log at warn level.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info()
	status := "success"
	if !event.Success {
		e = l.logger.Warn()
		status = "failed"
	}
	e = e.Str("event", event.Event).Str("status", status)

	if event.UserID != 0 {
		e = e.Int64(FieldUserID, event.UserID)
	}
	if event.Email != "" {
		e = e.Str("email", SanitizeEmail(event.Email))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Reason != "" && !event.Success {
		e = e.Str("reason", SanitizeError(event.Reason))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("Security event")
}

// LogLoginSuccess logs a successful login.
func (l *SecurityLogger) LogLoginSuccess(userID int64, email, ip, userAgent string) {
	l.LogEvent(&SecurityEvent{
		Event:     SecurityEventLoginSuccess,
		UserID:    userID,
		Email:     email,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   true,
	})
}

// LogLoginFailure logs a rejected login. userID is 0 for unknown emails.
func (l *SecurityLogger) LogLoginFailure(userID int64, email, ip, userAgent, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     SecurityEventLoginFailure,
		UserID:    userID,
		Email:     email,
		IPAddress: ip,
		UserAgent: userAgent,
		Reason:    reason,
	})
}

// LogLogout logs a logout.
func (l *SecurityLogger) LogLogout(userID int64, ip string) {
	l.LogEvent(&SecurityEvent{
		Event:     SecurityEventLogout,
		UserID:    userID,
		IPAddress: ip,
		Success:   true,
	})
}

// LogAccessDenied logs an authorization denial for object and action.
func (l *SecurityLogger) LogAccessDenied(userID int64, object, action, ip string) {
	l.LogEvent(&SecurityEvent{
		Event:     SecurityEventAccessDenied,
		UserID:    userID,
		IPAddress: ip,
		Reason:    "policy denied " + action + " on " + object,
	})
}

// LogOriginRejected logs a WebSocket upgrade refused for its Origin header.
func (l *SecurityLogger) LogOriginRejected(origin, ip, path string) {
	l.LogEvent(&SecurityEvent{
		Event:     SecurityEventOriginRejected,
		IPAddress: ip,
		Reason:    "origin not allowed",
		Details: map[string]string{
			"origin": truncateString(origin, 200),
			"path":   path,
		},
	})
}

// ============================================================
// Sanitization Helpers
// ============================================================

// SanitizeToken masks a token, showing only first and last 4 characters.
// Example: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..." -> "eyJh...kpXV"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeEmail masks an email address.
// Example: "john.doe@example.com" -> "jo***@example.com"
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}

	atIndex := strings.Index(email, "@")
	if atIndex <= 0 {
		return "***"
	}

	localPart := email[:atIndex]
	domain := email[atIndex:]

	if len(localPart) <= 2 {
		return "***" + domain
	}
	return localPart[:2] + "***" + domain
}

// sensitiveErrorPatterns mark error text that may echo a credential.
var sensitiveErrorPatterns = []string{
	"password",
	"secret",
	"token",
	"bearer",
	"authorization",
	"cookie",
}

// SanitizeError removes potentially sensitive information from error messages.
func SanitizeError(err string) string {
	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitiveErrorPatterns {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}
	return truncateString(err, 200)
}

// sensitiveKeys are detail keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"token":         true,
	"jwt":           true,
	"password":      true,
	"secret":        true,
	"authorization": true,
	"bearer":        true,
	"cookie":        true,
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}
	if strings.Contains(value, "@") && strings.Contains(value, ".") {
		return SanitizeEmail(value)
	}
	return value
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
