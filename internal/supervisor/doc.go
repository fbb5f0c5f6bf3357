// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

/*
Package supervisor provides process supervision for Trackrelay using suture v4.

Every long-running goroutine outside a relay session runs as a supervised
service with automatic restart, failure isolation and graceful shutdown.

# Overview

	RootSupervisor ("trackrelay")
	├── DataSupervisor ("data-layer")
	│   └── CheckpointService
	├── MessagingSupervisor ("messaging-layer")
	│   └── events.AuditLog ("session-audit")
	├── RelaySupervisor ("relay-layer")
	│   ├── relay.Reaper ("relay-reaper", when an idle timeout is set)
	│   ├── api.SessionLimiter ("session-limiter")
	│   └── RelayDrainService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Relay sessions themselves are not services. Each one is owned by the
relay.Manager and ends with its sockets; RelayDrainService closes whatever
is still open when the tree stops.

# Usage Example

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}

	tree.AddMessagingService(auditLog)
	tree.AddRelayService(services.NewRelayDrainService(manager, 5*time.Second))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Logging

Supervisor events (start, stop, failure, backoff) are logged through
sutureslog, with the slog logger backed by zerolog.
*/
package supervisor
