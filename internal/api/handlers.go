// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/trackrelay/internal/audit"
	"github.com/tomtom215/trackrelay/internal/auth"
	"github.com/tomtom215/trackrelay/internal/authz"
	"github.com/tomtom215/trackrelay/internal/config"
	"github.com/tomtom215/trackrelay/internal/logging"
	"github.com/tomtom215/trackrelay/internal/models"
	"github.com/tomtom215/trackrelay/internal/relay"
)

// Store is the persistence the handlers need.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	Ping(ctx context.Context) error
}

// Authorizer checks a principal against an object owned by ownerID.
type Authorizer interface {
	Authorize(p authz.Principal, object, action string, ownerID int64) (bool, error)
}

// EventHistory returns recent session lifecycle events.
type EventHistory interface {
	Recent() []relay.Event
}

// EventQuerier searches persisted session lifecycle events.
type EventQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]relay.Event, error)
}

// BreakerReporter exposes the upstream circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

// Deps are the collaborators of a Handler. Events, EventStore and Breaker
// are optional.
type Deps struct {
	Config     *config.Config
	Store      Store
	Manager    *relay.Manager
	JWT        *auth.JWTManager
	Authorizer Authorizer
	Limiter    *SessionLimiter
	Events     EventHistory
	EventStore EventQuerier
	Breaker    BreakerReporter
}

// Handler serves the relay upgrade route and the REST endpoints.
type Handler struct {
	config     *config.Config
	store      Store
	manager    *relay.Manager
	jwt        *auth.JWTManager
	authorizer Authorizer
	limiter    *SessionLimiter
	events     EventHistory
	eventStore EventQuerier
	breaker    BreakerReporter
	security   *logging.SecurityLogger
	upgrader   gorilla.Upgrader
	startTime  time.Time
}

// NewHandler creates a Handler from deps.
func NewHandler(deps Deps) (*Handler, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("api: config is required")
	case deps.Store == nil:
		return nil, errors.New("api: store is required")
	case deps.Manager == nil:
		return nil, errors.New("api: relay manager is required")
	case deps.JWT == nil:
		return nil, errors.New("api: jwt manager is required")
	case deps.Authorizer == nil:
		return nil, errors.New("api: authorizer is required")
	}

	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewSessionLimiter(deps.Config.Relay.SessionRatePerMinute, deps.Config.Relay.SessionBurst)
	}

	h := &Handler{
		config:     deps.Config,
		store:      deps.Store,
		manager:    deps.Manager,
		jwt:        deps.JWT,
		authorizer: deps.Authorizer,
		limiter:    limiter,
		events:     deps.Events,
		eventStore: deps.EventStore,
		breaker:    deps.Breaker,
		security:   logging.NewSecurityLogger(),
		startTime:  time.Now(),
	}
	h.upgrader = h.getUpgrader()
	return h, nil
}

// SessionLimiter returns the per-user session limiter so it can be supervised.
func (h *Handler) SessionLimiter() *SessionLimiter {
	return h.limiter
}

// getUpgrader returns a WebSocket upgrader with origin validation
func (h *Handler) getUpgrader() gorilla.Upgrader {
	return gorilla.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkWebSocketOrigin,
	}
}

// checkWebSocketOrigin validates the Origin header against the CORS
// origins. Clients that send no Origin (native apps, tools) are allowed;
// a browser always sends one.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	h.security.LogOriginRejected(sanitizeLogValue(origin), r.RemoteAddr, r.URL.Path)
	return false
}
