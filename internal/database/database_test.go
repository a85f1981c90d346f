// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
		Threads:   2,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// seedCatalog inserts a minimal center/vessel/instructor/trip graph and
// returns the trip.
func seedCatalog(t *testing.T, db *DB, capacity int) *models.Trip {
	t.Helper()
	ctx := context.Background()

	center := &models.DiveCenter{
		Name:    "Blue Hole Divers",
		Email:   "ops@bluehole.example",
		Country: "MX",
	}
	require.NoError(t, db.InsertDiveCenter(ctx, center))

	vessel := &models.Vessel{CenterID: center.ID, Name: "Nautilus", Capacity: capacity}
	require.NoError(t, db.InsertVessel(ctx, vessel))

	instructor := &models.Instructor{
		CenterID: center.ID, Name: "R. Castillo",
		Agency: "SSI", CertLevel: models.CertInstructor,
	}
	require.NoError(t, db.InsertInstructor(ctx, instructor))

	trip := &models.Trip{
		CenterID: center.ID, VesselID: vessel.ID, InstructorID: instructor.ID,
		Title: "Cenote Angelita", SiteName: "Angelita",
		DepartsAt: time.Now().UTC().Add(48 * time.Hour),
		ReturnsAt: time.Now().UTC().Add(54 * time.Hour),
		Capacity:  capacity, MinCertLevel: models.CertAdvanced,
		Price: decimal.RequireFromString("189.50"), Currency: "USD",
	}
	require.NoError(t, db.InsertTrip(ctx, trip))
	return trip
}

func TestDiveCenterCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	region := "Red Sea"
	center := &models.DiveCenter{
		Name:    "Thistlegorm Divers",
		Email:   "hello@thistlegorm.example",
		Country: "EG",
		Region:  &region,
	}
	require.NoError(t, db.InsertDiveCenter(ctx, center))
	require.NotEqual(t, uuid.Nil, center.ID)

	got, err := db.GetDiveCenter(ctx, center.ID)
	require.NoError(t, err)
	assert.Equal(t, center.Name, got.Name)
	assert.Equal(t, "EG", got.Country)
	require.NotNil(t, got.Region)
	assert.Equal(t, region, *got.Region)

	got.Name = "Thistlegorm Divers Sharm"
	require.NoError(t, db.UpdateDiveCenter(ctx, got))

	updated, err := db.GetDiveCenter(ctx, center.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thistlegorm Divers Sharm", updated.Name)

	require.NoError(t, db.DeleteDiveCenter(ctx, center.ID))
	_, err = db.GetDiveCenter(ctx, center.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetDiveCenterNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetDiveCenter(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDiveCentersCursor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		c := &models.DiveCenter{
			Name:      "Center",
			Email:     "c@example.com",
			Country:   "PH",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.InsertDiveCenter(ctx, c))
	}

	page1, err := db.ListDiveCenters(ctx, nil, 2, nil)
	require.NoError(t, err)
	require.Len(t, page1, 2)

	cursor := &models.ListCursor{CreatedAt: page1[1].CreatedAt, ID: page1[1].ID.String()}
	page2, err := db.ListDiveCenters(ctx, nil, 2, cursor)
	require.NoError(t, err)
	require.Len(t, page2, 2)

	// Newest first, no overlap between pages.
	assert.True(t, page1[0].CreatedAt.After(page1[1].CreatedAt))
	for _, c := range page2 {
		assert.NotEqual(t, page1[0].ID, c.ID)
		assert.NotEqual(t, page1[1].ID, c.ID)
	}
}

func TestListDiveCentersCountryFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, country := range []string{"EG", "EG", "MX"} {
		c := &models.DiveCenter{Name: "C", Email: "c@example.com", Country: country}
		require.NoError(t, db.InsertDiveCenter(ctx, c))
	}

	country := "EG"
	egyptian, err := db.ListDiveCenters(ctx, &country, 10, nil)
	require.NoError(t, err)
	assert.Len(t, egyptian, 2)
}

func TestTripRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trip := seedCatalog(t, db, 12)

	got, err := db.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripScheduled, got.Status)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("189.50")))
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, 0, got.SeatsBooked)
	assert.Equal(t, 12, got.SeatsRemaining())
}

func TestListTripsFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trip := seedCatalog(t, db, 12)

	// Price ceiling below the trip excludes it.
	maxPrice := decimal.RequireFromString("100.00")
	trips, err := db.ListTrips(ctx, TripFilter{MaxPrice: &maxPrice}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, trips)

	// Country filter follows the owning center.
	country := "MX"
	trips, err = db.ListTrips(ctx, TripFilter{Country: &country}, 10, nil)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, trip.ID, trips[0].ID)

	country = "EG"
	trips, err = db.ListTrips(ctx, TripFilter{Country: &country}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, trips)
}

func TestCreateBookingAllocatesSeats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trip := seedCatalog(t, db, 10)
	expires := time.Now().UTC().Add(15 * time.Minute)

	b := &models.Booking{
		TripID: trip.ID, DiverUsername: "diver1", Seats: 4,
		Status: models.BookingPending,
		Amount: decimal.RequireFromString("758.00"), Currency: "USD",
		HoldExpiresAt: &expires,
	}
	require.NoError(t, db.CreateBooking(ctx, b))
	require.NotEqual(t, uuid.Nil, b.ID)

	got, err := db.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.SeatsBooked)
	assert.Equal(t, 6, got.SeatsRemaining())
}

func TestCreateBookingSeatConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trip := seedCatalog(t, db, 6)

	first := &models.Booking{
		TripID: trip.ID, DiverUsername: "diver1", Seats: 5,
		Status: models.BookingPending,
		Amount: decimal.RequireFromString("947.50"), Currency: "USD",
	}
	require.NoError(t, db.CreateBooking(ctx, first))

	second := &models.Booking{
		TripID: trip.ID, DiverUsername: "diver2", Seats: 2,
		Status: models.BookingPending,
		Amount: decimal.RequireFromString("379.00"), Currency: "USD",
	}
	err := db.CreateBooking(ctx, second)
	assert.ErrorIs(t, err, ErrSeatsUnavailable)

	// The failed booking must not consume seats.
	got, err := db.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.SeatsBooked)
}

func TestCreateBookingUnknownTrip(t *testing.T) {
	db := newTestDB(t)

	b := &models.Booking{
		TripID: uuid.New(), DiverUsername: "diver1", Seats: 1,
		Status: models.BookingPending,
		Amount: decimal.RequireFromString("100.00"), Currency: "USD",
	}
	err := db.CreateBooking(context.Background(), b)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionBookingLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trip := seedCatalog(t, db, 10)
	expires := time.Now().UTC().Add(15 * time.Minute)
	b := &models.Booking{
		TripID: trip.ID, DiverUsername: "diver1", Seats: 2,
		Status: models.BookingPending,
		Amount: decimal.RequireFromString("379.00"), Currency: "USD",
		HoldExpiresAt: &expires,
	}
	require.NoError(t, db.CreateBooking(ctx, b))

	confirmed, err := db.TransitionBooking(ctx, b.ID, models.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)
	assert.Nil(t, confirmed.HoldExpiresAt)

	// confirmed -> expired is not a legal move.
	_, err = db.TransitionBooking(ctx, b.ID, models.BookingExpired)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	cancelled, err := db.TransitionBooking(ctx, b.ID, models.BookingCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	// Terminal states reject further moves.
	_, err = db.TransitionBooking(ctx, b.ID, models.BookingConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelledBookingReleasesSeats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trip := seedCatalog(t, db, 6)
	b := &models.Booking{
		TripID: trip.ID, DiverUsername: "diver1", Seats: 5,
		Status: models.BookingPending,
		Amount: decimal.RequireFromString("947.50"), Currency: "USD",
	}
	require.NoError(t, db.CreateBooking(ctx, b))

	_, err := db.TransitionBooking(ctx, b.ID, models.BookingCancelled)
	require.NoError(t, err)

	// Released seats can be re-booked.
	next := &models.Booking{
		TripID: trip.ID, DiverUsername: "diver2", Seats: 5,
		Status: models.BookingPending,
		Amount: decimal.RequireFromString("947.50"), Currency: "USD",
	}
	require.NoError(t, db.CreateBooking(ctx, next))
}

func TestListExpiredHolds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trip := seedCatalog(t, db, 10)
	past := time.Now().UTC().Add(-time.Minute)
	future := time.Now().UTC().Add(15 * time.Minute)

	expired := &models.Booking{
		TripID: trip.ID, DiverUsername: "late", Seats: 1,
		Status: models.BookingPending,
		Amount: decimal.RequireFromString("189.50"), Currency: "USD",
		HoldExpiresAt: &past,
	}
	require.NoError(t, db.CreateBooking(ctx, expired))

	live := &models.Booking{
		TripID: trip.ID, DiverUsername: "ontime", Seats: 1,
		Status: models.BookingPending,
		Amount: decimal.RequireFromString("189.50"), Currency: "USD",
		HoldExpiresAt: &future,
	}
	require.NoError(t, db.CreateBooking(ctx, live))

	holds, err := db.ListExpiredHolds(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, expired.ID, holds[0].ID)
}

func TestDeleteTripWithActiveBookings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trip := seedCatalog(t, db, 10)
	b := &models.Booking{
		TripID: trip.ID, DiverUsername: "diver1", Seats: 1,
		Status: models.BookingPending,
		Amount: decimal.RequireFromString("189.50"), Currency: "USD",
	}
	require.NoError(t, db.CreateBooking(ctx, b))

	err := db.DeleteTrip(ctx, trip.ID)
	assert.ErrorIs(t, err, ErrHasActiveBookings)

	_, err = db.TransitionBooking(ctx, b.ID, models.BookingCancelled)
	require.NoError(t, err)
	assert.NoError(t, db.DeleteTrip(ctx, trip.ID))
}

func TestInsertPaymentIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := &models.Payment{
		BookingID:       uuid.New(),
		ProviderEventID: "evt_001",
		EventType:       models.EventPaymentSucceeded,
		Status:          models.PaymentSucceeded,
		Amount:          decimal.RequireFromString("379.00"),
		Currency:        "USD",
	}
	inserted, err := db.InsertPayment(ctx, p)
	require.NoError(t, err)
	assert.True(t, inserted)

	replay := &models.Payment{
		BookingID:       p.BookingID,
		ProviderEventID: "evt_001",
		EventType:       models.EventPaymentSucceeded,
		Status:          models.PaymentSucceeded,
		Amount:          decimal.RequireFromString("379.00"),
		Currency:        "USD",
	}
	inserted, err = db.InsertPayment(ctx, replay)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := db.GetPaymentByProviderEventID(ctx, "evt_001")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("379.00")))
}

func TestUserDuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &models.User{
		Username: "diver1", Email: "d1@example.com",
		Role: models.RoleDiver, PasswordHash: "x",
	}
	require.NoError(t, db.InsertUser(ctx, u))

	dup := &models.User{
		Username: "diver1", Email: "other@example.com",
		Role: models.RoleDiver, PasswordHash: "y",
	}
	err := db.InsertUser(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, db.UpdateUserRole(ctx, "diver1", models.RoleStaff))
	got, err := db.GetUser(ctx, "diver1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, got.Role)
}

func TestChangeLogSequencing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 3; i++ {
		seq, err := db.AppendChange(ctx, &models.ChangeLogEntry{
			EntityType: models.EntityTrip,
			EntityID:   uuid.New().String(),
			Op:         models.OpCreate,
			Payload:    `{}`,
		})
		require.NoError(t, err)
		seqs = append(seqs, seq)
	}

	assert.Less(t, seqs[0], seqs[1])
	assert.Less(t, seqs[1], seqs[2])

	entries, err := db.ListChangesSince(ctx, seqs[0], 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, seqs[1], entries[0].Seq)
	assert.Equal(t, seqs[2], entries[1].Seq)

	max, err := db.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, seqs[2], max)
}

func TestPruneChangesBefore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	_, err := db.AppendChange(ctx, &models.ChangeLogEntry{
		EntityType: models.EntityBooking, EntityID: "b1",
		Op: models.OpUpdate, Payload: `{}`, OccurredAt: old,
	})
	require.NoError(t, err)

	keptSeq, err := db.AppendChange(ctx, &models.ChangeLogEntry{
		EntityType: models.EntityBooking, EntityID: "b2",
		Op: models.OpUpdate, Payload: `{}`,
	})
	require.NoError(t, err)

	pruned, err := db.PruneChangesBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	min, err := db.MinSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, keptSeq, min)
}

func TestDeviceRegistrationUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	d := &models.Device{ID: "dev-1", Username: "diver1", Platform: "ios"}
	require.NoError(t, db.RegisterDevice(ctx, d))

	require.NoError(t, db.UpdateDeviceCursor(ctx, "dev-1", 42))

	// Re-registering keeps the sync cursor.
	token := "apns-token"
	again := &models.Device{ID: "dev-1", Username: "diver1", Platform: "ios", PushToken: &token}
	require.NoError(t, db.RegisterDevice(ctx, again))

	got, err := db.GetDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.LastSeq)
	require.NotNil(t, got.PushToken)
	assert.Equal(t, token, *got.PushToken)
}

func TestCheckpointAndClose(t *testing.T) {
	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	require.NoError(t, err)

	require.NoError(t, db.Ping(context.Background()))
	require.NoError(t, db.Checkpoint(context.Background()))
	require.NoError(t, db.Close())
}
