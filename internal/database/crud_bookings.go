// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pelagos-app/pelagos/internal/database/query"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/metrics"
	"github.com/pelagos-app/pelagos/internal/models"
)

const bookingColumns = `
	id, trip_id, diver_username, seats, status, CAST(amount AS VARCHAR), currency,
	hold_expires_at, confirmed_at, cancelled_at, created_at, updated_at`

// BookingFilter holds the supported booking listing filters.
type BookingFilter struct {
	TripID        *uuid.UUID
	DiverUsername *string
	Statuses      []string
}

// CreateBooking allocates seats for a trip inside a transaction.
//
// remaining = capacity − SUM(seats of pending and confirmed bookings);
// the insert happens only when seats ≤ remaining, otherwise
// ErrSeatsUnavailable. The caller must hold the per-trip lock so the
// check-then-insert pair is not interleaved with another allocation for
// the same trip.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = models.BookingPending
	}

	start := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logging.Debug().Err(err).Msg("Booking transaction rollback failed")
		}
	}()

	var capacity, held int
	err = tx.QueryRowContext(ctx, `SELECT t.capacity,
		COALESCE((SELECT SUM(b.seats) FROM bookings b
			WHERE b.trip_id = t.id AND b.status IN ('pending', 'confirmed')), 0)
	FROM trips t WHERE t.id = ?`, b.TripID.String()).Scan(&capacity, &held)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read trip capacity: %w", err)
	}

	if b.Seats > capacity-held {
		metrics.BookingConflicts.Inc()
		return fmt.Errorf("%w: %d requested, %d remaining", ErrSeatsUnavailable, b.Seats, capacity-held)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO bookings (
		id, trip_id, diver_username, seats, status, amount, currency,
		hold_expires_at, confirmed_at, cancelled_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID.String(), b.TripID.String(), b.DiverUsername, b.Seats, b.Status,
		b.Amount.String(), b.Currency, nullTime(b.HoldExpiresAt),
		nullTime(b.ConfirmedAt), nullTime(b.CancelledAt), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	err = tx.Commit()
	metrics.RecordDBQuery("insert", "bookings", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	metrics.BookingsCreated.Inc()
	return nil
}

// GetBooking fetches a booking by ID.
func (db *DB) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM bookings WHERE id = ?`, bookingColumns), id.String())

	b, err := scanBooking(row)
	metrics.RecordDBQuery("select", "bookings", time.Since(start), err)
	return b, err
}

// ListBookings returns bookings matching the filter, newest first.
func (db *DB) ListBookings(ctx context.Context, filter BookingFilter, limit int, cursor *models.ListCursor) ([]models.Booking, error) {
	wb := query.NewWhereBuilder()
	if filter.TripID != nil {
		wb.AddEquals("trip_id", filter.TripID.String())
	}
	if filter.DiverUsername != nil {
		wb.AddEquals("diver_username", *filter.DiverUsername)
	}
	wb.AddIn("status", filter.Statuses)
	if cursor != nil {
		wb.AddClause("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	whereClause, args := wb.Build()
	args = append(args, limit)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM bookings WHERE %s ORDER BY created_at DESC, id DESC LIMIT ?`,
		bookingColumns, whereClause), args...)
	metrics.RecordDBQuery("select", "bookings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer closeQuietly(rows)

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// TransitionBooking moves a booking to a new state, enforcing the
// lifecycle. Returns the updated booking.
func (db *DB) TransitionBooking(ctx context.Context, id uuid.UUID, to string) (*models.Booking, error) {
	b, err := db.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.CanTransitionBooking(b.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}

	now := time.Now().UTC()
	from := b.Status
	b.Status = to
	b.UpdatedAt = now
	switch to {
	case models.BookingConfirmed:
		b.ConfirmedAt = &now
		b.HoldExpiresAt = nil
	case models.BookingCancelled:
		b.CancelledAt = &now
		b.HoldExpiresAt = nil
	case models.BookingExpired:
		b.HoldExpiresAt = nil
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `UPDATE bookings SET
		status = ?, hold_expires_at = ?, confirmed_at = ?, cancelled_at = ?, updated_at = ?
	WHERE id = ? AND status = ?`,
		b.Status, nullTime(b.HoldExpiresAt), nullTime(b.ConfirmedAt),
		nullTime(b.CancelledAt), b.UpdatedAt, b.ID.String(), from,
	)
	metrics.RecordDBQuery("update", "bookings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to transition booking: %w", err)
	}
	if err := requireRowAffected(res); err != nil {
		// Row moved out from under us; report it as a transition conflict.
		return nil, fmt.Errorf("%w: booking state changed concurrently", ErrInvalidTransition)
	}

	metrics.RecordBookingTransition(from, to)
	return b, nil
}

// ListExpiredHolds returns pending bookings whose hold TTL has lapsed.
func (db *DB) ListExpiredHolds(ctx context.Context, asOf time.Time) ([]models.Booking, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM bookings
		WHERE status = 'pending' AND hold_expires_at IS NOT NULL AND hold_expires_at <= ?
		ORDER BY hold_expires_at ASC`, bookingColumns), asOf)
	metrics.RecordDBQuery("select", "bookings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}
	defer closeQuietly(rows)

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// CountHeldSeats returns the total seats held by active bookings.
func (db *DB) CountHeldSeats(ctx context.Context) (int, error) {
	var held int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(seats), 0) FROM bookings WHERE status IN ('pending', 'confirmed')`).Scan(&held)
	if err != nil {
		return 0, fmt.Errorf("failed to count held seats: %w", err)
	}
	return held, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b           models.Booking
		idStr       string
		tripStr     string
		amountStr   string
		holdExpires sql.NullTime
		confirmedAt sql.NullTime
		cancelledAt sql.NullTime
	)
	err := row.Scan(&idStr, &tripStr, &b.DiverUsername, &b.Seats, &b.Status,
		&amountStr, &b.Currency, &holdExpires, &confirmedAt, &cancelledAt,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	if b.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid booking id %q: %w", idStr, err)
	}
	if b.TripID, err = uuid.Parse(tripStr); err != nil {
		return nil, fmt.Errorf("invalid trip id %q: %w", tripStr, err)
	}
	if b.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("invalid booking amount %q: %w", amountStr, err)
	}
	b.HoldExpiresAt = timePtr(holdExpires)
	b.ConfirmedAt = timePtr(confirmedAt)
	b.CancelledAt = timePtr(cancelledAt)
	return &b, nil
}
