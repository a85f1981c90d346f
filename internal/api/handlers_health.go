// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package api

import (
	"net/http"
	"time"

	"github.com/pelagos-app/pelagos/internal/models"
)

// Version is the reported service version. Overridden at build time via
// -ldflags "-X github.com/pelagos-app/pelagos/internal/api.Version=...".
var Version = "dev"

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status      string  `json:"status"`
	Version     string  `json:"version"`
	UptimeSecs  float64 `json:"uptime_seconds"`
	Database    string  `json:"database"`
	WSClients   int     `json:"ws_clients"`
	Environment string  `json:"environment"`
}

// Health reports overall service health including a database ping.
//
//	@Summary		Service health
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	models.APIResponse
//	@Failure		503	{object}	models.APIResponse
//	@Router			/api/v1/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		Version:     Version,
		UptimeSecs:  time.Since(h.startTime).Seconds(),
		Database:    "ok",
		Environment: h.config.Server.Environment,
	}
	if h.wsHub != nil {
		resp.WSClients = h.wsHub.GetClientCount()
	}

	if err := h.db.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     resp,
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    &models.APIError{Code: codeDatabase, Message: "database unreachable"},
		})
		return
	}
	respondSuccess(w, http.StatusOK, resp)
}

// HealthLive is the liveness probe: the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe: the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, codeDatabase, "database not ready", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}
