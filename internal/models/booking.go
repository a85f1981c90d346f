// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking states.
//
// Lifecycle:
//
//	pending ──► confirmed ──► cancelled
//	   │
//	   ├──────► cancelled
//	   └──────► expired
//
// Pending bookings hold seats until HoldExpiresAt; the expiry sweeper
// moves stale holds to expired and releases the seats. Confirmed and
// pending bookings count against trip capacity, cancelled and expired
// do not.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingExpired   = "expired"
)

// bookingTransitions maps each state to its allowed successor states.
var bookingTransitions = map[string][]string{
	BookingPending:   {BookingConfirmed, BookingCancelled, BookingExpired},
	BookingConfirmed: {BookingCancelled},
	BookingCancelled: {},
	BookingExpired:   {},
}

// ValidBookingStatuses contains all recognized booking states.
var ValidBookingStatuses = []string{BookingPending, BookingConfirmed, BookingCancelled, BookingExpired}

// IsValidBookingStatus checks whether a status is recognized.
func IsValidBookingStatus(status string) bool {
	_, ok := bookingTransitions[status]
	return ok
}

// CanTransitionBooking reports whether a booking may move from one state
// to another.
func CanTransitionBooking(from, to string) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BookingHoldsSeats reports whether a booking in the given state counts
// against trip capacity.
func BookingHoldsSeats(status string) bool {
	return status == BookingPending || status == BookingConfirmed
}

// Booking is a diver's claim on seats for a trip.
type Booking struct {
	ID            uuid.UUID       `json:"id"`
	TripID        uuid.UUID       `json:"trip_id"`
	DiverUsername string          `json:"diver_username"`
	Seats         int             `json:"seats"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	HoldExpiresAt *time.Time      `json:"hold_expires_at,omitempty"` // set while pending
	ConfirmedAt   *time.Time      `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BookingsResponse wraps a booking listing with pagination info.
type BookingsResponse struct {
	Bookings   []Booking      `json:"bookings"`
	Pagination PaginationInfo `json:"pagination"`
}
