// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

/*
Package config provides configuration management for Trackrelay.

Configuration is loaded with Koanf v2 from three layers, highest priority
last:

  - Defaults: built-in values from defaultConfig()
  - Config file: optional YAML from CONFIG_PATH, else the first of
    DefaultConfigPaths that exists
  - Environment variables: flat names mapped onto the nested keys

# Configuration Structure

  - ServerConfig: listen host, port, read timeout and environment
  - SecurityConfig: JWT secret, session cookie, admin seed, rate limits, CORS
  - UpstreamConfig: tracking service URL, handshake timeout, initialize
    settings and circuit breaker thresholds
  - RelayConfig: idle reaping, per-user session rate, frame size limit and
    session event retention
  - DatabaseConfig: DuckDB path, memory limit and threads
  - LoggingConfig: level, format and caller reporting

# Environment Variables

Server:

	HTTP_PORT=8080
	HTTP_HOST=0.0.0.0
	SERVER_TIMEOUT=30s
	ENVIRONMENT=development

Security:

	JWT_SECRET=<at least 32 characters>
	SESSION_TIMEOUT=30m
	AUTH_COOKIE_NAME=token
	AUTH_COOKIE_SECURE=false
	ADMIN_EMAIL=admin@example.com
	ADMIN_PASSWORD=<must pass the password policy>
	RATE_LIMIT_REQUESTS=100
	RATE_LIMIT_WINDOW=1m
	DISABLE_RATE_LIMIT=false
	CORS_ORIGINS=https://app.example.com,https://admin.example.com

Upstream:

	UPSTREAM_URL=ws://localhost:5000
	UPSTREAM_CONNECT_TIMEOUT=10s
	UPSTREAM_FPS_LIMIT=10
	UPSTREAM_CONFIDENCE_THRESHOLD=0.8
	UPSTREAM_BREAKER_FAILURES=5
	UPSTREAM_BREAKER_TIMEOUT=30s

Relay:

	RELAY_IDLE_TIMEOUT=0
	RELAY_REAP_INTERVAL=30s
	RELAY_SESSION_RATE_PER_MINUTE=30
	RELAY_SESSION_BURST=5
	RELAY_MAX_MESSAGE_SIZE=524288
	RELAY_EVENT_RETENTION=168h

Database and logging:

	DUCKDB_PATH=/data/trackrelay.duckdb
	DUCKDB_MAX_MEMORY=512MB
	DUCKDB_THREADS=0
	LOG_LEVEL=info
	LOG_FORMAT=json
	LOG_CALLER=false

# Validation

Load fails when a value is out of range. Rejected values include:

  - a JWT secret shorter than 32 characters or a placeholder
  - an upstream URL that is not ws:// or wss://
  - an admin password that fails DefaultPasswordPolicy
  - a confidence threshold outside 0..1
  - wildcard CORS with ENVIRONMENT=production

Outside production a wildcard CORS origin is accepted and logged as a
warning at startup.

# Example

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(cfg.Server.Addr())
*/
package config
