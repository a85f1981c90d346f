// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	json "github.com/goccy/go-json"
)

func TestBookingTransitions(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingPending, BookingExpired, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingConfirmed, BookingExpired, false},
		{BookingConfirmed, BookingPending, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingExpired, BookingConfirmed, false},
		{BookingExpired, BookingCancelled, false},
		{"bogus", BookingConfirmed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionBooking(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestBookingHoldsSeats(t *testing.T) {
	assert.True(t, BookingHoldsSeats(BookingPending))
	assert.True(t, BookingHoldsSeats(BookingConfirmed))
	assert.False(t, BookingHoldsSeats(BookingCancelled))
	assert.False(t, BookingHoldsSeats(BookingExpired))
}

func TestCertLevelAtLeast(t *testing.T) {
	assert.True(t, CertLevelAtLeast(CertRescue, CertOpenWater))
	assert.True(t, CertLevelAtLeast(CertAdvanced, CertAdvanced))
	assert.False(t, CertLevelAtLeast(CertOpenWater, CertAdvanced))
	assert.False(t, CertLevelAtLeast("ninja", CertOpenWater))
	assert.False(t, CertLevelAtLeast(CertInstructor, "ninja"))
}

func TestTripSeatsRemaining(t *testing.T) {
	trip := &Trip{Capacity: 12, SeatsBooked: 9}
	assert.Equal(t, 3, trip.SeatsRemaining())

	// Derived counts can briefly exceed capacity after a capacity edit.
	trip = &Trip{Capacity: 8, SeatsBooked: 10}
	assert.Equal(t, 0, trip.SeatsRemaining())
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole(RoleAdmin))
	assert.True(t, IsValidRole(RoleStaff))
	assert.True(t, IsValidRole(RoleDiver))
	assert.False(t, IsValidRole("viewer"))
	assert.False(t, IsValidRole(""))
}

func TestIsValidWebhookEventType(t *testing.T) {
	assert.True(t, IsValidWebhookEventType(EventPaymentSucceeded))
	assert.True(t, IsValidWebhookEventType(EventPaymentRefunded))
	assert.False(t, IsValidWebhookEventType("payment.created"))
}

func TestMoneySerializesAsString(t *testing.T) {
	price := decimal.RequireFromString("249.90")
	trip := Trip{Price: price, Currency: "EUR"}

	data, err := json.Marshal(trip)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price":"249.90"`)
}

func TestWebhookEventRoundTrip(t *testing.T) {
	raw := []byte(`{"event_id":"evt_1","event_type":"payment.succeeded","booking_id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","amount":"120.50","currency":"EUR"}`)

	var evt WebhookEvent
	require.NoError(t, json.Unmarshal(raw, &evt))
	assert.Equal(t, "evt_1", evt.EventID)
	assert.Equal(t, EventPaymentSucceeded, evt.EventType)
	assert.True(t, evt.Amount.Equal(decimal.RequireFromString("120.50")))
}
