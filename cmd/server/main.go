// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/trackrelay/internal/api"
	"github.com/tomtom215/trackrelay/internal/audit"
	"github.com/tomtom215/trackrelay/internal/auth"
	"github.com/tomtom215/trackrelay/internal/authz"
	"github.com/tomtom215/trackrelay/internal/config"
	"github.com/tomtom215/trackrelay/internal/database"
	"github.com/tomtom215/trackrelay/internal/events"
	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/relay"
	"github.com/tomtom215/trackrelay/internal/subjects"
	"github.com/tomtom215/trackrelay/internal/supervisor"
	"github.com/tomtom215/trackrelay/internal/supervisor/services"
)

// eventBufferSize is the per-subscriber buffer of the in-process event bus.
const eventBufferSize = 256

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("upstream", cfg.Upstream.BaseURL).
		Str("db_path", cfg.Database.Path).
		Msg("Starting Trackrelay with supervisor tree")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Strs("cors_origins", cfg.Security.CORSOrigins).Msg("Wildcard CORS origin configured, restrict CORS_ORIGINS before production")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	if err := seedAdmin(db, &cfg.Security); err != nil {
		logging.Fatal().Err(err).Msg("Failed to seed admin account")
	}

	enforcer, err := authz.NewEnforcer(authz.DefaultEnforcerConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization enforcer")
	}
	defer enforcer.Close()

	// Event bus feeds the audit log; publishing never blocks the relay
	busLogger := events.NewLoggerAdapter()
	bus := events.NewBus(eventBufferSize, busLogger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	auditLog := events.NewAuditLog(bus.Subscriber(), events.DefaultAuditCapacity, busLogger)

	// Persisted session history; the relay runs without it if the table
	// cannot be created
	var eventStore *audit.DuckDBStore
	var eventQuerier api.EventQuerier
	if store, err := initEventStore(db); err != nil {
		logging.Warn().Err(err).Msg("Failed to create session events table - event persistence disabled")
	} else {
		eventStore = store
		eventQuerier = store
		auditLog.WithStore(store)
		logging.Info().Dur("retention", cfg.Relay.EventRetention).Msg("Session event persistence enabled")
	}

	connector, manager, err := initRelay(cfg, db, enforcer, bus)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize relay")
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	handler, err := api.NewHandler(api.Deps{
		Config:     cfg,
		Store:      db,
		Manager:    manager,
		JWT:        jwtManager,
		Authorizer: enforcer,
		Events:     auditLog,
		EventStore: eventQuerier,
		Breaker:    connector,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize API handler")
	}

	router := api.NewRouter(
		handler,
		auth.NewMiddleware(jwtManager, db, cfg.Security.CookieName),
		authz.NewMiddleware(enforcer),
	)

	// WriteTimeout stays unset: hijacked relay connections outlive any
	// request deadline and manage their own write deadlines.
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// === BUILD SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Data layer
	tree.AddDataService(services.NewCheckpointService(db, services.DefaultCheckpointInterval))

	// Messaging layer
	tree.AddMessagingService(auditLog)
	if eventStore != nil && cfg.Relay.EventRetention > 0 {
		tree.AddMessagingService(audit.NewRetention(eventStore, cfg.Relay.EventRetention, time.Hour))
	}

	// Relay layer
	if cfg.Relay.IdleTimeout > 0 {
		tree.AddRelayService(relay.NewReaper(manager, cfg.Relay.IdleTimeout, cfg.Relay.ReapInterval))
		logging.Info().Dur("idle_timeout", cfg.Relay.IdleTimeout).Msg("Idle session reaper enabled")
	}
	tree.AddRelayService(handler.SessionLimiter())
	tree.AddRelayService(services.NewRelayDrainService(manager, 5*time.Second))

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// seedAdmin creates the configured admin account on first start.
func seedAdmin(db *database.DB, sec *config.SecurityConfig) error {
	if sec.AdminEmail == "" || sec.AdminPassword == "" {
		logging.Info().Msg("No admin credentials configured, skipping admin seed")
		return nil
	}

	hash, err := auth.HashPassword(sec.AdminPassword)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = db.EnsureAdmin(ctx, sec.AdminEmail, hash)
	return err
}

// initEventStore creates the session_events table.
func initEventStore(db *database.DB) (*audit.DuckDBStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := audit.NewDuckDBStore(db.Conn())
	if err := store.CreateTable(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// initRelay wires the upstream connector, subject resolver and session
// manager.
func initRelay(cfg *config.Config, db *database.DB, enforcer *authz.Enforcer, bus *events.Bus) (*relay.UpstreamConnector, *relay.Manager, error) {
	connector, err := relay.NewUpstreamConnector(relay.ConnectorConfig{
		BaseURL:        cfg.Upstream.BaseURL,
		ConnectTimeout: cfg.Upstream.ConnectTimeout,
		Settings: relay.Settings{
			FPSLimit:            cfg.Upstream.FPSLimit,
			ConfidenceThreshold: cfg.Upstream.ConfidenceThreshold,
		},
		BreakerFailures: cfg.Upstream.BreakerFailures,
		BreakerTimeout:  cfg.Upstream.BreakerTimeout,
		MaxMessageSize:  cfg.Relay.MaxMessageSize,
	})
	if err != nil {
		return nil, nil, err
	}

	manager, err := relay.NewManager(relay.Options{
		Registry:       relay.NewRegistry(),
		Resolver:       subjects.NewResolver(db, enforcer),
		Connector:      connector,
		Events:         bus,
		MaxMessageSize: cfg.Relay.MaxMessageSize,
	})
	if err != nil {
		return nil, nil, err
	}

	logging.Info().
		Str("upstream", cfg.Upstream.BaseURL).
		Int("fps_limit", cfg.Upstream.FPSLimit).
		Float64("confidence_threshold", cfg.Upstream.ConfidenceThreshold).
		Msg("Relay initialized")
	return connector, manager, nil
}
