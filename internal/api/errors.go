// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package api

import (
	"errors"
	"net/http"

	"github.com/pelagos-app/pelagos/internal/booking"
	"github.com/pelagos-app/pelagos/internal/database"
	syncpkg "github.com/pelagos-app/pelagos/internal/sync"
)

// API error codes returned in the error envelope.
const (
	codeValidation     = "VALIDATION_ERROR"
	codeDatabase       = "DATABASE_ERROR"
	codeAuthentication = "AUTHENTICATION_ERROR"
	codeAuthorization  = "AUTHORIZATION_ERROR"
	codeNotFound       = "NOT_FOUND"
	codeConflict       = "CONFLICT"
	codeGone           = "GONE"
)

// respondDomainError maps service and storage errors to HTTP statuses.
// Unrecognized errors become 500 DATABASE_ERROR.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, "resource not found", nil)
	case errors.Is(err, database.ErrSeatsUnavailable):
		respondError(w, http.StatusConflict, codeConflict, "not enough seats available", nil)
	case errors.Is(err, database.ErrInvalidTransition):
		respondError(w, http.StatusConflict, codeConflict, "booking state does not allow this transition", nil)
	case errors.Is(err, database.ErrHasActiveBookings):
		respondError(w, http.StatusConflict, codeConflict, "resource has active bookings", nil)
	case errors.Is(err, database.ErrInUse):
		respondError(w, http.StatusConflict, codeConflict, "resource is still referenced by other records", nil)
	case errors.Is(err, database.ErrDuplicate):
		respondError(w, http.StatusConflict, codeConflict, "resource already exists", nil)
	case errors.Is(err, database.ErrCursorPruned):
		respondError(w, http.StatusGone, codeGone, "cursor predates the retained change window, full resync required", nil)
	case errors.Is(err, syncpkg.ErrInvalidCursor):
		respondError(w, http.StatusBadRequest, codeValidation, "invalid sync cursor", nil)
	case errors.Is(err, booking.ErrTripNotBookable):
		respondError(w, http.StatusConflict, codeConflict, "trip is not open for booking", nil)
	case errors.Is(err, booking.ErrTripDeparted):
		respondError(w, http.StatusConflict, codeConflict, "trip has already departed", nil)
	case errors.Is(err, booking.ErrCertInsufficient):
		respondError(w, http.StatusForbidden, codeAuthorization, "certification level does not meet the trip minimum", nil)
	case errors.Is(err, booking.ErrTooManySeats):
		respondError(w, http.StatusBadRequest, codeValidation, "requested seat count is out of range", nil)
	case errors.Is(err, booking.ErrNotOwner):
		respondError(w, http.StatusForbidden, codeAuthorization, "booking belongs to another diver", nil)
	default:
		respondError(w, http.StatusInternalServerError, codeDatabase, "internal error", err)
	}
}
