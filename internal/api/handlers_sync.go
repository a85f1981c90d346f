// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package api

import (
	"net/http"

	"github.com/pelagos-app/pelagos/internal/auth"
	"github.com/pelagos-app/pelagos/internal/models"
)

// SyncChanges serves the mobile delta-sync feed.
//
// Clients pass their last cursor and receive the changes after it plus
// a new cursor. No cursor means a full resync from the start of the
// retained log. A cursor older than retention returns 410 Gone and the
// client must resync.
//
//	@Summary		Pull changes
//	@Tags			sync
//	@Produce		json
//	@Param			cursor	query		string	false	"resume cursor"
//	@Param			limit	query		int		false	"max changes"
//	@Success		200		{object}	models.APIResponse
//	@Failure		410		{object}	models.APIResponse
//	@Router			/api/v1/sync/changes [get]
func (h *Handler) SyncChanges(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := getIntParam(r, "limit", 0)

	resp, err := h.sync.Changes(r.Context(), cursor, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, resp)
}

// RegisterDevice registers a mobile device for the authenticated user.
// Idempotent: re-registering refreshes the push token but keeps the
// device's sync position.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "not authenticated", nil)
		return
	}

	var req models.RegisterDeviceRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	device, err := h.sync.RegisterDevice(r.Context(), claims.Username, &req)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, device)
}

// ListDevices returns the authenticated user's registered devices.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "not authenticated", nil)
		return
	}
	devices, err := h.sync.Devices(r.Context(), claims.Username)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, devices)
}

// AckSyncCursor records the cursor a device has durably applied.
func (h *Handler) AckSyncCursor(w http.ResponseWriter, r *http.Request) {
	var req AckCursorRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if err := h.sync.AckCursor(r.Context(), req.DeviceID, req.Cursor); err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"device_id": req.DeviceID})
}
