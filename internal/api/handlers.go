// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package api exposes the REST surface of the marketplace: catalog
// CRUD, trip search, booking lifecycle, payment webhooks, delta sync,
// and the live-update WebSocket, routed through Chi.
package api

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pelagos-app/pelagos/internal/auth"
	"github.com/pelagos-app/pelagos/internal/booking"
	"github.com/pelagos-app/pelagos/internal/cache"
	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/events"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/models"
	"github.com/pelagos-app/pelagos/internal/payments"
	syncpkg "github.com/pelagos-app/pelagos/internal/sync"
	ws "github.com/pelagos-app/pelagos/internal/websocket"
)

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files by resource:
//   - handlers.go: Handler struct, constructor, change recording (this file)
//   - handlers_health.go: health and readiness endpoints
//   - handlers_auth.go: login, refresh, registration, profile
//   - handlers_catalog.go: dive centers, vessels, instructors
//   - handlers_trips.go: trip CRUD and search
//   - handlers_bookings.go: booking lifecycle
//   - handlers_payments.go: provider webhook and payment listings
//   - handlers_sync.go: delta-sync feed and device registry
//   - handlers_websocket.go: live update socket upgrade
type Handler struct {
	db         *database.DB
	config     *config.Config
	bookings   *booking.Service
	payments   *payments.Processor
	sync       *syncpkg.Manager
	jwtManager *auth.JWTManager
	tokenStore auth.RefreshTokenStore
	bus        *events.Bus
	wsHub      *ws.Hub
	cache      *cache.Cache
	startTime  time.Time
}

// NewHandler creates an API handler wired to the domain services.
// Catalog listings go through a short TTL cache; any catalog write
// clears it.
func NewHandler(
	db *database.DB,
	cfg *config.Config,
	bookings *booking.Service,
	processor *payments.Processor,
	syncMgr *syncpkg.Manager,
	jwtManager *auth.JWTManager,
	tokenStore auth.RefreshTokenStore,
	bus *events.Bus,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		db:         db,
		config:     cfg,
		bookings:   bookings,
		payments:   processor,
		sync:       syncMgr,
		jwtManager: jwtManager,
		tokenStore: tokenStore,
		bus:        bus,
		wsHub:      wsHub,
		cache:      cache.New(time.Minute),
		startTime:  time.Now(),
	}
}

// ClearCache invalidates cached catalog listings.
func (h *Handler) ClearCache() {
	if h.cache != nil {
		h.cache.Clear()
	}
}

// recordChange appends a catalog mutation to the change log and
// publishes the matching event. Both are best-effort relative to the
// catalog write; the row is the source of truth.
func (h *Handler) recordChange(ctx context.Context, entityType, entityID, op, eventType string, entity interface{}) {
	payload, err := json.Marshal(entity)
	if err != nil {
		logging.Error().Err(err).Str("entity_type", entityType).Msg("failed to marshal entity for change log")
		return
	}

	seq, err := h.db.AppendChange(ctx, &models.ChangeLogEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Op:         op,
		Payload:    string(payload),
	})
	if err != nil {
		logging.Error().Err(err).Str("entity_type", entityType).Str("entity_id", entityID).Msg("failed to append change")
		return
	}

	if h.bus == nil || eventType == "" {
		return
	}
	event := events.NewEvent(eventType, entityType, entityID).
		WithSeq(seq).
		WithData(entity)
	if err := h.bus.Publish(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_type", eventType).Msg("failed to publish change event")
	}
}
