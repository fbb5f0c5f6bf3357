// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/trackrelay/internal/models"
)

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status          string  `json:"status"`
	Database        bool    `json:"database_connected"`
	ActiveSessions  int     `json:"active_sessions"`
	UpstreamBreaker string  `json:"upstream_breaker,omitempty"`
	Uptime          float64 `json:"uptime"`
}

// Health reports overall service health. The service is degraded when the
// database is unreachable or the upstream breaker is open.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.store.Ping(r.Context()) == nil

	breaker := ""
	if h.breaker != nil {
		breaker = h.breaker.BreakerState()
	}

	status := "healthy"
	if !dbConnected || breaker == "open" {
		status = "degraded"
	}

	respondSuccess(w, http.StatusOK, HealthStatus{
		Status:          status,
		Database:        dbConnected,
		ActiveSessions:  h.manager.Registry().Len(),
		UpstreamBreaker: breaker,
		Uptime:          time.Since(h.startTime).Seconds(),
	})
}

// HealthLive handles liveness probe requests (Kubernetes-style)
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 503 until the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ready := h.store.Ping(r.Context()) == nil

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"ready":  ready,
			"status": status,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
