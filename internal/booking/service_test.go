// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/events"
	"github.com/pelagos-app/pelagos/internal/models"
)

type testEnv struct {
	db  *database.DB
	svc *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB", Threads: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bus := events.NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	svc := NewService(db, bus, &config.BookingConfig{
		HoldTTL:            15 * time.Minute,
		SweepInterval:      time.Minute,
		MaxSeatsPerBooking: 8,
	})
	return &testEnv{db: db, svc: svc}
}

func (e *testEnv) seedTrip(t *testing.T, capacity int, minCert string, departsIn time.Duration) *models.Trip {
	t.Helper()
	ctx := context.Background()

	center := &models.DiveCenter{Name: "Reef Base", Email: "ops@reef.example", Country: "PH"}
	require.NoError(t, e.db.InsertDiveCenter(ctx, center))
	vessel := &models.Vessel{CenterID: center.ID, Name: "Banka", Capacity: capacity}
	require.NoError(t, e.db.InsertVessel(ctx, vessel))
	instructor := &models.Instructor{CenterID: center.ID, Name: "J. Cruz", Agency: "PADI", CertLevel: models.CertInstructor}
	require.NoError(t, e.db.InsertInstructor(ctx, instructor))

	trip := &models.Trip{
		CenterID: center.ID, VesselID: vessel.ID, InstructorID: instructor.ID,
		Title: "Apo Reef", SiteName: "Apo Reef",
		DepartsAt: time.Now().UTC().Add(departsIn),
		ReturnsAt: time.Now().UTC().Add(departsIn + 6*time.Hour),
		Capacity:  capacity, MinCertLevel: minCert,
		Price: decimal.RequireFromString("120.00"), Currency: "USD",
	}
	require.NoError(t, e.db.InsertTrip(ctx, trip))
	return trip
}

func (e *testEnv) seedDiver(t *testing.T, username string, certLevel *string) {
	t.Helper()
	require.NoError(t, e.db.InsertUser(context.Background(), &models.User{
		Username: username, Email: username + "@example.com",
		Role: models.RoleDiver, PasswordHash: "x", CertLevel: certLevel,
	}))
}

func strp(s string) *string { return &s }

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.seedTrip(t, 10, models.CertOpenWater, 48*time.Hour)
	env.seedDiver(t, "diver1", strp(models.CertAdvanced))

	b, err := env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "diver1", Seats: 2})
	require.NoError(t, err)

	assert.Equal(t, models.BookingPending, b.Status)
	assert.True(t, b.Amount.Equal(decimal.RequireFromString("240.00")))
	require.NotNil(t, b.HoldExpiresAt)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), *b.HoldExpiresAt, 5*time.Second)

	// The change log recorded the creation.
	changes, err := env.db.ListChangesSince(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, models.EntityBooking, changes[0].EntityType)
	assert.Equal(t, models.OpCreate, changes[0].Op)
}

func TestCreateBookingSeatLimits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.seedTrip(t, 10, "", 48*time.Hour)
	env.seedDiver(t, "diver1", strp(models.CertOpenWater))

	_, err := env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "diver1", Seats: 0})
	assert.ErrorIs(t, err, ErrTooManySeats)

	_, err = env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "diver1", Seats: 9})
	assert.ErrorIs(t, err, ErrTooManySeats)
}

func TestCreateBookingCertCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.seedTrip(t, 10, models.CertRescue, 48*time.Hour)
	env.seedDiver(t, "novice", strp(models.CertOpenWater))
	env.seedDiver(t, "uncertified", nil)
	env.seedDiver(t, "pro", strp(models.CertDivemaster))

	_, err := env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "novice", Seats: 1})
	assert.ErrorIs(t, err, ErrCertInsufficient)

	_, err = env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "uncertified", Seats: 1})
	assert.ErrorIs(t, err, ErrCertInsufficient)

	_, err = env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "pro", Seats: 1})
	assert.NoError(t, err)
}

func TestCreateBookingDepartedTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.seedTrip(t, 10, "", -time.Hour)
	env.seedDiver(t, "diver1", strp(models.CertOpenWater))

	_, err := env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "diver1", Seats: 1})
	assert.ErrorIs(t, err, ErrTripDeparted)
}

func TestCreateBookingCancelledTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.seedTrip(t, 10, "", 48*time.Hour)
	trip.Status = models.TripCancelled
	require.NoError(t, env.db.UpdateTrip(ctx, trip))
	env.seedDiver(t, "diver1", strp(models.CertOpenWater))

	_, err := env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "diver1", Seats: 1})
	assert.ErrorIs(t, err, ErrTripNotBookable)
}

func TestConcurrentBookingNeverOversells(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.seedTrip(t, 10, "", 48*time.Hour)
	env.seedDiver(t, "diver1", strp(models.CertOpenWater))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "diver1", Seats: 3})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, database.ErrSeatsUnavailable)
		}
	}
	// 10 capacity / 3 seats per booking allows exactly 3 successes.
	assert.Equal(t, 3, succeeded)

	got, err := env.db.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, got.SeatsBooked, got.Capacity)
}

func TestCancelOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.seedTrip(t, 10, "", 48*time.Hour)
	env.seedDiver(t, "owner", strp(models.CertOpenWater))

	b, err := env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "owner", Seats: 1})
	require.NoError(t, err)

	_, err = env.svc.Cancel(ctx, b.ID, "intruder", models.RoleDiver)
	assert.ErrorIs(t, err, ErrNotOwner)

	// Staff can cancel anyone's booking.
	cancelled, err := env.svc.Cancel(ctx, b.ID, "staff1", models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
}

func TestGetHidesForeignBookings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.seedTrip(t, 10, "", 48*time.Hour)
	env.seedDiver(t, "owner", strp(models.CertOpenWater))

	b, err := env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "owner", Seats: 1})
	require.NoError(t, err)

	_, err = env.svc.Get(ctx, b.ID, "other", models.RoleDiver)
	assert.ErrorIs(t, err, database.ErrNotFound)

	got, err := env.svc.Get(ctx, b.ID, "anyone", models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestSweeperExpiresLapsedHolds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.seedTrip(t, 10, "", 48*time.Hour)
	env.seedDiver(t, "diver1", strp(models.CertOpenWater))

	b, err := env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "diver1", Seats: 2})
	require.NoError(t, err)

	// Backdate the hold so the sweeper sees it as lapsed.
	past := time.Now().UTC().Add(-time.Minute)
	_, err = env.db.Conn().ExecContext(ctx,
		"UPDATE bookings SET hold_expires_at = ? WHERE id = ?", past, b.ID.String())
	require.NoError(t, err)

	sweeper := NewSweeper(env.svc, time.Minute)
	sweeper.Sweep(ctx)

	got, err := env.db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingExpired, got.Status)
	assert.Nil(t, got.HoldExpiresAt)

	// Seats are back in the pool.
	updated, err := env.db.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.SeatsBooked)
}

func TestSweeperSkipsConfirmedBookings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trip := env.seedTrip(t, 10, "", 48*time.Hour)
	env.seedDiver(t, "diver1", strp(models.CertOpenWater))

	b, err := env.svc.Create(ctx, CreateRequest{TripID: trip.ID, DiverUsername: "diver1", Seats: 2})
	require.NoError(t, err)

	_, err = env.svc.Confirm(ctx, b.ID)
	require.NoError(t, err)

	sweeper := NewSweeper(env.svc, time.Minute)
	sweeper.Sweep(ctx)

	got, err := env.db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, got.Status)
}

func TestConfirmUnknownBooking(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Confirm(context.Background(), uuid.New())
	assert.ErrorIs(t, err, database.ErrNotFound)
}
