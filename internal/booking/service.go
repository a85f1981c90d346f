// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package booking implements the booking lifecycle: seat holds with a
// TTL, confirmation on payment, cancellation, and expiry sweeping.
// Seat allocation is serialized per trip so two concurrent requests can
// never oversell the same departure.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/events"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/models"
)

// maxTripBookings bounds the batch when cancelling a whole trip. A
// trip's booking count is capped by vessel capacity, far below this.
const maxTripBookings = 1000

// Service errors.
var (
	ErrTripNotBookable  = errors.New("trip is not open for booking")
	ErrTripDeparted     = errors.New("trip has already departed")
	ErrCertInsufficient = errors.New("certification level below trip minimum")
	ErrTooManySeats     = errors.New("seat count exceeds per-booking limit")
	ErrNotOwner         = errors.New("booking belongs to another diver")
)

// Service coordinates booking operations on top of the database layer.
type Service struct {
	db  *database.DB
	bus *events.Bus
	cfg *config.BookingConfig

	// tripLocks serializes seat allocation per trip. The database
	// check-then-insert is only safe under this lock.
	tripLocks sync.Map
}

// NewService creates the booking service.
func NewService(db *database.DB, bus *events.Bus, cfg *config.BookingConfig) *Service {
	return &Service{
		db:  db,
		bus: bus,
		cfg: cfg,
	}
}

// CreateRequest holds the parameters for a new booking.
type CreateRequest struct {
	TripID        uuid.UUID
	DiverUsername string
	Seats         int
}

// Create places a seat hold for a diver. The hold expires after the
// configured TTL unless a payment confirms it first. The booking amount
// is the trip price times seats, captured at booking time so later
// price changes do not affect existing holds.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	if req.Seats < 1 || req.Seats > s.cfg.MaxSeatsPerBooking {
		return nil, fmt.Errorf("%w: %d seats (max %d)", ErrTooManySeats, req.Seats, s.cfg.MaxSeatsPerBooking)
	}

	trip, err := s.db.GetTrip(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != models.TripScheduled {
		return nil, fmt.Errorf("%w: status %s", ErrTripNotBookable, trip.Status)
	}
	if !trip.DepartsAt.After(time.Now().UTC()) {
		return nil, ErrTripDeparted
	}

	if err := s.checkCertLevel(ctx, req.DiverUsername, trip.MinCertLevel); err != nil {
		return nil, err
	}

	holdExpires := time.Now().UTC().Add(s.cfg.HoldTTL)
	b := &models.Booking{
		TripID:        trip.ID,
		DiverUsername: req.DiverUsername,
		Seats:         req.Seats,
		Status:        models.BookingPending,
		Amount:        trip.Price.Mul(decimal.NewFromInt(int64(req.Seats))),
		Currency:      trip.Currency,
		HoldExpiresAt: &holdExpires,
	}

	unlock := s.lockTrip(trip.ID)
	err = s.db.CreateBooking(ctx, b)
	unlock()
	if err != nil {
		return nil, err
	}

	s.recordChange(ctx, b, models.OpCreate, events.TypeBookingCreated)
	logging.Ctx(ctx).Info().
		Str("booking_id", b.ID.String()).
		Str("trip_id", trip.ID.String()).
		Int("seats", req.Seats).
		Time("hold_expires_at", holdExpires).
		Msg("booking created")
	return b, nil
}

// checkCertLevel verifies the diver's certification covers the trip
// minimum. Users without a recorded certification cannot book trips
// that require one.
func (s *Service) checkCertLevel(ctx context.Context, username, minCertLevel string) error {
	if minCertLevel == "" {
		return nil
	}

	user, err := s.db.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Basic-auth deployments have no user rows; skip the check.
			return nil
		}
		return err
	}

	if user.CertLevel == nil {
		return fmt.Errorf("%w: no certification on record, trip requires %s", ErrCertInsufficient, minCertLevel)
	}
	if !models.CertLevelAtLeast(*user.CertLevel, minCertLevel) {
		return fmt.Errorf("%w: have %s, trip requires %s", ErrCertInsufficient, *user.CertLevel, minCertLevel)
	}
	return nil
}

// Confirm moves a pending booking to confirmed. Called by the payments
// processor when a matching payment succeeds.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := s.db.TransitionBooking(ctx, id, models.BookingConfirmed)
	if err != nil {
		return nil, err
	}

	s.recordChange(ctx, b, models.OpUpdate, events.TypeBookingConfirmed)
	logging.Ctx(ctx).Info().Str("booking_id", b.ID.String()).Msg("booking confirmed")
	return b, nil
}

// Cancel cancels a booking. Divers may only cancel their own bookings;
// staff and admin may cancel any.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, username, role string) (*models.Booking, error) {
	existing, err := s.db.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if role == models.RoleDiver && existing.DiverUsername != username {
		return nil, ErrNotOwner
	}

	b, err := s.db.TransitionBooking(ctx, id, models.BookingCancelled)
	if err != nil {
		return nil, err
	}

	s.recordChange(ctx, b, models.OpUpdate, events.TypeBookingCancelled)
	logging.Ctx(ctx).Info().
		Str("booking_id", b.ID.String()).
		Str("cancelled_by", username).
		Msg("booking cancelled")
	return b, nil
}

// CancelAllForTrip cancels every active booking on a trip, used when
// staff cancel the trip itself. Returns the number of bookings
// cancelled; individual failures are logged and skipped so one stuck
// booking does not block the rest.
func (s *Service) CancelAllForTrip(ctx context.Context, tripID uuid.UUID) int {
	active, err := s.db.ListBookings(ctx, database.BookingFilter{
		TripID:   &tripID,
		Statuses: []string{models.BookingPending, models.BookingConfirmed},
	}, maxTripBookings, nil)
	if err != nil {
		logging.Error().Err(err).Str("trip_id", tripID.String()).Msg("failed to list bookings for trip cancellation")
		return 0
	}

	cancelled := 0
	for i := range active {
		b, err := s.db.TransitionBooking(ctx, active[i].ID, models.BookingCancelled)
		if err != nil {
			logging.Error().Err(err).Str("booking_id", active[i].ID.String()).Msg("failed to cancel booking for cancelled trip")
			continue
		}
		s.recordChange(ctx, b, models.OpUpdate, events.TypeBookingCancelled)
		cancelled++
	}
	return cancelled
}

// Expire moves a pending booking whose hold lapsed to expired, freeing
// its seats.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := s.db.TransitionBooking(ctx, id, models.BookingExpired)
	if err != nil {
		return nil, err
	}

	s.recordChange(ctx, b, models.OpUpdate, events.TypeBookingExpired)
	return b, nil
}

// Get returns a booking, enforcing diver ownership.
func (s *Service) Get(ctx context.Context, id uuid.UUID, username, role string) (*models.Booking, error) {
	b, err := s.db.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == models.RoleDiver && b.DiverUsername != username {
		// Hide the existence of other divers' bookings.
		return nil, database.ErrNotFound
	}
	return b, nil
}

// List returns bookings matching the filter with cursor pagination.
// Divers are restricted to their own bookings.
func (s *Service) List(ctx context.Context, filter database.BookingFilter, username, role string, limit int, cursor *models.ListCursor) ([]models.Booking, error) {
	if role == models.RoleDiver {
		filter.DiverUsername = &username
	}
	return s.db.ListBookings(ctx, filter, limit, cursor)
}

// lockTrip acquires the per-trip mutex and returns its unlock func.
func (s *Service) lockTrip(tripID uuid.UUID) func() {
	muIface, _ := s.tripLocks.LoadOrStore(tripID, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// recordChange appends the booking to the sync change log and publishes
// the matching domain event. Both are best-effort relative to the
// booking write: the booking row is the source of truth, and clients
// recover missed changes through full resync.
func (s *Service) recordChange(ctx context.Context, b *models.Booking, op, eventType string) {
	payload, err := json.Marshal(b)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal booking for change log")
		return
	}

	seq, err := s.db.AppendChange(ctx, &models.ChangeLogEntry{
		EntityType: models.EntityBooking,
		EntityID:   b.ID.String(),
		Op:         op,
		Payload:    string(payload),
	})
	if err != nil {
		logging.Error().Err(err).Str("booking_id", b.ID.String()).Msg("failed to append booking change")
		return
	}

	if s.bus == nil {
		return
	}
	event := events.NewEvent(eventType, models.EntityBooking, b.ID.String()).
		WithUsername(b.DiverUsername).
		WithSeq(seq).
		WithData(b)
	if err := s.bus.Publish(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_type", eventType).Msg("failed to publish booking event")
	}
}
