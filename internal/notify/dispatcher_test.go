// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos-app/pelagos/internal/events"
	"github.com/pelagos-app/pelagos/internal/models"
	"github.com/pelagos-app/pelagos/internal/websocket"
)

func TestDispatcherBroadcastsBookingEvents(t *testing.T) {
	bus := events.NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()

	d := NewDispatcher(bus, hub, nil)
	go func() { _ = d.Serve(ctx) }()

	// Give the subscriber loops a moment to attach.
	time.Sleep(50 * time.Millisecond)

	b := &models.Booking{
		ID:            uuid.New(),
		TripID:        uuid.New(),
		DiverUsername: "diver1",
		Seats:         2,
		Status:        models.BookingConfirmed,
		Amount:        decimal.RequireFromString("240.00"),
		Currency:      "USD",
	}
	event := events.NewEvent(events.TypeBookingConfirmed, models.EntityBooking, b.ID.String()).
		WithUsername("diver1").
		WithSeq(7).
		WithData(b)
	require.NoError(t, bus.Publish(ctx, event))

	// No client is connected; the assertion is that dispatch does not
	// panic and the hub stays healthy.
	assert.Eventually(t, func() bool {
		return hub.GetClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestDispatcherHandlesMalformedPayload(t *testing.T) {
	bus := events.NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	d := NewDispatcher(bus, nil, nil)
	go func() { _ = d.Serve(ctx) }()
	time.Sleep(50 * time.Millisecond)

	// Data that is valid JSON but not a booking snapshot.
	event := events.NewEvent(events.TypeBookingCreated, models.EntityBooking, uuid.NewString())
	event.Data = []byte(`"opaque"`)
	require.NoError(t, bus.Publish(ctx, event))

	// The dispatcher must keep consuming after a bad payload.
	good := events.NewEvent(events.TypeBookingCreated, models.EntityBooking, uuid.NewString()).
		WithData(&models.Booking{ID: uuid.New()})
	assert.NoError(t, bus.Publish(ctx, good))
}
