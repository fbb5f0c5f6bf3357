// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateUpstream(); err != nil {
		return err
	}

	if err := c.validateRelay(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates HTTP server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive")
	}
	return nil
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}

	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}

	if c.Security.CookieName == "" {
		return fmt.Errorf("AUTH_COOKIE_NAME must not be empty")
	}

	if err := c.validateAdminCredentials(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	return c.validateRateLimits()
}

// validateJWTSecret validates the JWT secret configuration
func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// validateAdminCredentials requires ADMIN_EMAIL and ADMIN_PASSWORD to be set together.
func (c *Config) validateAdminCredentials() error {
	hasEmail := c.Security.AdminEmail != ""
	hasPassword := c.Security.AdminPassword != ""
	if hasEmail != hasPassword {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if !hasPassword {
		return nil
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return fmt.Errorf("ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	if err := DefaultPasswordPolicy().Validate(c.Security.AdminPassword, c.Security.AdminEmail); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
	}
	return nil
}

// validateCORS rejects wildcard CORS in production, where cookie
// authentication would let any origin act with a stolen session.
func (c *Config) validateCORS() error {
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production. " +
			"Set specific origins: CORS_ORIGINS=https://yourdomain.com " +
			"or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// Upstream bounds
const (
	maxConnectTimeout = 2 * time.Minute
	maxFPSLimit       = 120
)

// validateUpstream validates the AI tracking service configuration
func (c *Config) validateUpstream() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("UPSTREAM_URL is required")
	}
	if err := validateWebSocketURL(c.Upstream.BaseURL, "UPSTREAM_URL"); err != nil {
		return err
	}
	if c.Upstream.ConnectTimeout <= 0 || c.Upstream.ConnectTimeout > maxConnectTimeout {
		return fmt.Errorf("UPSTREAM_CONNECT_TIMEOUT must be between 0 and %v", maxConnectTimeout)
	}
	if c.Upstream.FPSLimit < 1 || c.Upstream.FPSLimit > maxFPSLimit {
		return fmt.Errorf("UPSTREAM_FPS_LIMIT must be between 1 and %d", maxFPSLimit)
	}
	if c.Upstream.ConfidenceThreshold < 0 || c.Upstream.ConfidenceThreshold > 1 {
		return fmt.Errorf("UPSTREAM_CONFIDENCE_THRESHOLD must be between 0 and 1")
	}
	if c.Upstream.BreakerFailures == 0 {
		return fmt.Errorf("UPSTREAM_BREAKER_FAILURES must be at least 1")
	}
	if c.Upstream.BreakerTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_BREAKER_TIMEOUT must be positive")
	}
	return nil
}

// validateRelay validates session management configuration
func (c *Config) validateRelay() error {
	if c.Relay.IdleTimeout < 0 {
		return fmt.Errorf("RELAY_IDLE_TIMEOUT must not be negative")
	}
	if c.Relay.IdleTimeout > 0 && c.Relay.ReapInterval <= 0 {
		return fmt.Errorf("RELAY_REAP_INTERVAL must be positive when RELAY_IDLE_TIMEOUT is set")
	}
	if c.Relay.SessionRatePerMinute < 1 {
		return fmt.Errorf("RELAY_SESSION_RATE_PER_MINUTE must be at least 1")
	}
	if c.Relay.SessionBurst < 1 {
		return fmt.Errorf("RELAY_SESSION_BURST must be at least 1")
	}
	if c.Relay.MaxMessageSize < 1024 {
		return fmt.Errorf("RELAY_MAX_MESSAGE_SIZE must be at least 1024 bytes")
	}
	if c.Relay.EventRetention < 0 {
		return fmt.Errorf("RELAY_EVENT_RETENTION must not be negative")
	}
	return nil
}

// validateDatabase validates DuckDB configuration
func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required (use :memory: for an in-process database)")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns defines common placeholder patterns that indicate
// the user forgot to set a real value.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"EXAMPLE",
}

// containsPlaceholder checks if a value contains common placeholder patterns
func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
