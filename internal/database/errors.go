// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package database

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Sentinel errors returned by data access methods. Callers map these to
// HTTP statuses (NOT_FOUND, CONFLICT) without string matching.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSeatsUnavailable is returned when a booking requests more seats
	// than the trip has remaining.
	ErrSeatsUnavailable = errors.New("seats unavailable")

	// ErrInvalidTransition is returned for a booking state change the
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrHasActiveBookings is returned when deleting a trip that still
	// has pending or confirmed bookings.
	ErrHasActiveBookings = errors.New("trip has active bookings")

	// ErrInUse is returned when deleting a catalog record that other
	// records still reference (a center with vessels, a vessel with
	// trips).
	ErrInUse = errors.New("referenced by other records")

	// ErrCursorPruned is returned when a sync cursor points below the
	// retained change log window.
	ErrCursorPruned = errors.New("cursor older than retention window")

	// ErrDuplicate is returned when a unique constraint would be
	// violated (e.g. registering an existing username).
	ErrDuplicate = errors.New("already exists")
)

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
