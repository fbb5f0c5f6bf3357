// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file, and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Relay:
//     - Upstream: AI tracking service address, connect timeout, relay settings
//     - Relay: Session limits and idle reaping
//
//  2. Infrastructure:
//     - Database: DuckDB store for users, people and videos
//     - Server: HTTP server configuration (port, host, timeout)
//
//  3. Security:
//     - Security: JWT cookie authentication, rate limiting, CORS
//
//  4. Observability:
//     - Logging: Log levels and output formats
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Relay    RelayConfig    `koanf:"relay"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging", "production"
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds authentication and request limiting settings
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	CookieName        string        `koanf:"cookie_name"`
	CookieSecure      bool          `koanf:"cookie_secure"`
	AdminEmail        string        `koanf:"admin_email"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// UpstreamConfig describes the AI tracking service each session is bridged to.
type UpstreamConfig struct {
	// BaseURL is the ws:// or wss:// address of the service. The session path
	// /video-stream/{sessionId} is appended per session.
	BaseURL string `koanf:"base_url"`

	// ConnectTimeout bounds the upstream handshake. A session whose upstream
	// has not opened within this window is torn down.
	ConnectTimeout time.Duration `koanf:"connect_timeout"`

	// FPSLimit caps the forwarded frame rate on the upstream side.
	FPSLimit int `koanf:"fps_limit"`

	// ConfidenceThreshold is the upstream detection filtering threshold (0..1).
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	// BreakerFailures is the number of consecutive dial failures that open
	// the upstream circuit breaker.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// RelayConfig holds session management settings
type RelayConfig struct {
	// IdleTimeout tears down sessions with no traffic in either direction
	// for this long.
	// Zero disables idle reaping.
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	ReapInterval time.Duration `koanf:"reap_interval"`

	// SessionRatePerMinute and SessionBurst bound how often a single user
	// may open new sessions.
	SessionRatePerMinute int `koanf:"session_rate_per_minute"`
	SessionBurst         int `koanf:"session_burst"`

	// MaxMessageSize is the largest client frame accepted, in bytes.
	MaxMessageSize int64 `koanf:"max_message_size"`

	// EventRetention is how long persisted session events are kept.
	// Zero keeps them forever.
	EventRetention time.Duration `koanf:"event_retention"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"` // ":memory:" runs an in-process database
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = DuckDB default
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Load reads configuration from all sources in priority order:
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
