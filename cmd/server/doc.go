// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

/*
Package main is the entry point for the Trackrelay server.

Trackrelay bridges authenticated browser clients to an AI video tracking
service. For each client WebSocket opened on /ws/video-track/{personId}/{videoId}
the server resolves the person and video the user owns, dials the tracking
service at /video-stream/{sessionId}, sends the initialize handshake and
relays frames in both directions until either side closes.

# Application Architecture

The server runs under a Suture v4 supervision tree:

	RootSupervisor ("trackrelay")
	├── DataSupervisor ("data-layer")
	│   └── Database checkpoint
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Session audit log (Watermill subscriber, persists to DuckDB)
	│   └── Session event retention (RELAY_EVENT_RETENTION > 0)
	├── RelaySupervisor ("relay-layer")
	│   ├── Idle session reaper (RELAY_IDLE_TIMEOUT > 0)
	│   ├── Session rate limiter cleanup
	│   └── Relay drain (closes live sessions on shutdown)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (Chi router)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB holding users, persons and videos
 4. Authorization: Casbin enforcer with the embedded ownership policy
 5. Event bus: Watermill GoChannel feeding the audit log
 6. Relay: upstream connector, subject resolver and session manager
 7. Authentication: JWT tokens via header or cookie
 8. Supervisor Tree and HTTP Server

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	# Server
	HTTP_PORT=8080
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Authentication
	JWT_SECRET=<32+ chars>
	ADMIN_EMAIL=admin@example.com
	ADMIN_PASSWORD=<password>

	# Upstream tracking service
	UPSTREAM_URL=ws://tracker:5000
	UPSTREAM_CONNECT_TIMEOUT=10s
	UPSTREAM_FPS_LIMIT=10
	UPSTREAM_CONFIDENCE_THRESHOLD=0.8

	# Relay
	RELAY_IDLE_TIMEOUT=0         # 0 disables idle reaping
	RELAY_SESSION_RATE_PER_MINUTE=30
	RELAY_EVENT_RETENTION=168h   # 0 keeps session events forever

# Signal Handling

SIGINT and SIGTERM cancel the tree. The HTTP server stops accepting
connections, every live relay session receives a disconnected frame and a
close, and the database is checkpointed before exit.

# Example Usage

	export JWT_SECRET=$(openssl rand -base64 32)
	export ADMIN_EMAIL=admin@example.com
	export ADMIN_PASSWORD=secure-password
	export UPSTREAM_URL=ws://localhost:5000
	./trackrelay
*/
package main
