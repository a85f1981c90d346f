// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos-app/pelagos/internal/booking"
	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/models"
)

type paymentEnv struct {
	db        *database.DB
	processor *Processor
	booking   *models.Booking
}

func newPaymentEnv(t *testing.T) *paymentEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB", Threads: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	center := &models.DiveCenter{Name: "Blue Hole Divers", Email: "ops@bluehole.example", Country: "MX"}
	require.NoError(t, db.InsertDiveCenter(ctx, center))
	vessel := &models.Vessel{CenterID: center.ID, Name: "Cenote", Capacity: 12}
	require.NoError(t, db.InsertVessel(ctx, vessel))
	instructor := &models.Instructor{CenterID: center.ID, Name: "M. Diaz", Agency: "SSI", CertLevel: models.CertInstructor}
	require.NoError(t, db.InsertInstructor(ctx, instructor))
	trip := &models.Trip{
		CenterID: center.ID, VesselID: vessel.ID, InstructorID: instructor.ID,
		Title: "Cenote Dive", SiteName: "Dos Ojos",
		DepartsAt: time.Now().UTC().Add(24 * time.Hour),
		ReturnsAt: time.Now().UTC().Add(30 * time.Hour),
		Capacity:  12, Price: decimal.RequireFromString("95.00"), Currency: "USD",
	}
	require.NoError(t, db.InsertTrip(ctx, trip))

	bookings := booking.NewService(db, nil, &config.BookingConfig{
		HoldTTL: 15 * time.Minute, MaxSeatsPerBooking: 8,
	})
	b, err := bookings.Create(ctx, booking.CreateRequest{TripID: trip.ID, DiverUsername: "diver1", Seats: 2})
	require.NoError(t, err)

	return &paymentEnv{
		db:        db,
		processor: NewProcessor(db, bookings, nil),
		booking:   b,
	}
}

func succeededEvent(b *models.Booking) *models.WebhookEvent {
	return &models.WebhookEvent{
		EventID:    "evt_" + uuid.NewString()[:8],
		EventType:  models.EventPaymentSucceeded,
		BookingID:  b.ID,
		Amount:     b.Amount,
		Currency:   b.Currency,
		OccurredAt: time.Now().UTC(),
	}
}

func TestProcessSucceededConfirmsBooking(t *testing.T) {
	env := newPaymentEnv(t)
	ctx := context.Background()

	result, err := env.processor.Process(ctx, succeededEvent(env.booking))
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.False(t, result.Duplicate)
	assert.False(t, result.Quarantined)

	got, err := env.db.GetBooking(ctx, env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, got.Status)
}

func TestProcessDuplicateDelivery(t *testing.T) {
	env := newPaymentEnv(t)
	ctx := context.Background()

	ev := succeededEvent(env.booking)
	_, err := env.processor.Process(ctx, ev)
	require.NoError(t, err)

	result, err := env.processor.Process(ctx, ev)
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.False(t, result.Applied)
}

func TestProcessAmountMismatchQuarantines(t *testing.T) {
	env := newPaymentEnv(t)
	ctx := context.Background()

	ev := succeededEvent(env.booking)
	ev.Amount = decimal.RequireFromString("1.00")

	result, err := env.processor.Process(ctx, ev)
	require.NoError(t, err)
	assert.True(t, result.Quarantined)
	assert.False(t, result.Applied)

	// Booking untouched.
	got, err := env.db.GetBooking(ctx, env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, got.Status)

	stored, err := env.db.GetPaymentByProviderEventID(ctx, ev.EventID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentQuarantined, stored.Status)
	require.NotNil(t, stored.QuarantineNote)
	assert.Contains(t, *stored.QuarantineNote, "amount mismatch")
}

func TestProcessCurrencyMismatchQuarantines(t *testing.T) {
	env := newPaymentEnv(t)
	ctx := context.Background()

	ev := succeededEvent(env.booking)
	ev.Currency = "EUR"

	result, err := env.processor.Process(ctx, ev)
	require.NoError(t, err)
	assert.True(t, result.Quarantined)
}

func TestProcessFailedCancelsPendingBooking(t *testing.T) {
	env := newPaymentEnv(t)
	ctx := context.Background()

	ev := succeededEvent(env.booking)
	ev.EventType = models.EventPaymentFailed

	result, err := env.processor.Process(ctx, ev)
	require.NoError(t, err)
	assert.True(t, result.Applied)

	got, err := env.db.GetBooking(ctx, env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, got.Status)
}

func TestProcessRefundCancelsConfirmedBooking(t *testing.T) {
	env := newPaymentEnv(t)
	ctx := context.Background()

	_, err := env.processor.Process(ctx, succeededEvent(env.booking))
	require.NoError(t, err)

	refund := succeededEvent(env.booking)
	refund.EventType = models.EventPaymentRefunded
	refund.Amount = decimal.RequireFromString("50.00") // partial refunds pass through

	result, err := env.processor.Process(ctx, refund)
	require.NoError(t, err)
	assert.True(t, result.Applied)

	got, err := env.db.GetBooking(ctx, env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, got.Status)
}

func TestProcessOutOfOrderEventRecordedNotApplied(t *testing.T) {
	env := newPaymentEnv(t)
	ctx := context.Background()

	// Refund before any success: pending booking, refund not applicable.
	refund := succeededEvent(env.booking)
	refund.EventType = models.EventPaymentRefunded

	result, err := env.processor.Process(ctx, refund)
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.False(t, result.Quarantined)

	// The payment row still exists as the durable record.
	_, err = env.db.GetPaymentByProviderEventID(ctx, refund.EventID)
	assert.NoError(t, err)

	got, err := env.db.GetBooking(ctx, env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, got.Status)
}

func TestProcessUnknownBooking(t *testing.T) {
	env := newPaymentEnv(t)

	ev := succeededEvent(env.booking)
	ev.BookingID = uuid.New()

	_, err := env.processor.Process(context.Background(), ev)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestProcessRejectsUnknownEventType(t *testing.T) {
	env := newPaymentEnv(t)

	ev := succeededEvent(env.booking)
	ev.EventType = "payment.exploded"

	_, err := env.processor.Process(context.Background(), ev)
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event_id":"evt_1"}`)
	secret := "whsec_test"

	sig := ComputeSignature(body, secret)
	assert.True(t, VerifySignature(body, sig, secret))
	assert.False(t, VerifySignature(body, sig, "wrong"))
	assert.False(t, VerifySignature([]byte("tampered"), sig, secret))
	assert.False(t, VerifySignature(body, "", secret))
	assert.False(t, VerifySignature(body, sig, ""))
}
