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
	"github.com/pelagos-app/pelagos/internal/metrics"
	"github.com/pelagos-app/pelagos/internal/models"
)

// tripColumns lists the trip select columns including the derived
// seats_booked count. Price is cast to VARCHAR so exact decimals survive
// the driver round trip.
const tripColumns = `
	t.id, t.center_id, t.vessel_id, t.instructor_id, t.title, t.description,
	t.site_name, t.status, t.departs_at, t.returns_at, t.capacity,
	t.min_cert_level, CAST(t.price AS VARCHAR), t.currency, t.max_depth_m,
	t.created_at, t.updated_at,
	COALESCE((SELECT SUM(b.seats) FROM bookings b
		WHERE b.trip_id = t.id AND b.status IN ('pending', 'confirmed')), 0)`

// TripFilter holds the supported trip listing filters. Nil fields are
// skipped.
type TripFilter struct {
	CenterID     *uuid.UUID
	Country      *string // joins against the owning center
	From         *time.Time
	To           *time.Time
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	MinCertLevel *string
	Statuses     []string
}

// InsertTrip inserts a trip. Idempotent on ID.
func (db *DB) InsertTrip(ctx context.Context, t *models.Trip) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = models.TripScheduled
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO trips (
		id, center_id, vessel_id, instructor_id, title, description, site_name,
		status, departs_at, returns_at, capacity, min_cert_level, price, currency,
		max_depth_m, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		t.ID.String(), t.CenterID.String(), t.VesselID.String(), t.InstructorID.String(),
		t.Title, nullStr(t.Description), t.SiteName, t.Status, t.DepartsAt, t.ReturnsAt,
		t.Capacity, t.MinCertLevel, t.Price.String(), t.Currency, nullInt(t.MaxDepthM),
		t.CreatedAt, t.UpdatedAt,
	)
	metrics.RecordDBQuery("insert", "trips", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}
	return nil
}

// GetTrip fetches a trip with its derived seats_booked count.
func (db *DB) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM trips t WHERE t.id = ?`, tripColumns), id.String())

	t, err := scanTrip(row)
	metrics.RecordDBQuery("select", "trips", time.Since(start), err)
	return t, err
}

// ListTrips returns trips matching the filter, soonest departure first,
// with cursor pagination on (departs_at, id).
func (db *DB) ListTrips(ctx context.Context, filter TripFilter, limit int, cursor *models.ListCursor) ([]models.Trip, error) {
	wb := query.NewWhereBuilder()
	if filter.CenterID != nil {
		wb.AddEquals("t.center_id", filter.CenterID.String())
	}
	if filter.Country != nil {
		wb.AddClause("t.center_id IN (SELECT id FROM dive_centers WHERE country = ?)", *filter.Country)
	}
	wb.AddDateRange("t.departs_at", filter.From, filter.To)
	var minPrice, maxPrice *string
	if filter.MinPrice != nil {
		s := filter.MinPrice.String()
		minPrice = &s
	}
	if filter.MaxPrice != nil {
		s := filter.MaxPrice.String()
		maxPrice = &s
	}
	wb.AddRange("t.price", minPrice, maxPrice)
	if filter.MinCertLevel != nil {
		wb.AddEquals("t.min_cert_level", *filter.MinCertLevel)
	}
	wb.AddIn("t.status", filter.Statuses)
	if cursor != nil {
		// Listing is ascending by departure, so the cursor moves forward.
		wb.AddClause("(t.departs_at, t.id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	whereClause, args := wb.Build()
	args = append(args, limit)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM trips t WHERE %s ORDER BY t.departs_at ASC, t.id ASC LIMIT ?`,
		tripColumns, whereClause), args...)
	metrics.RecordDBQuery("select", "trips", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer closeQuietly(rows)

	var trips []models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

// UpdateTrip updates the mutable fields of a trip.
func (db *DB) UpdateTrip(ctx context.Context, t *models.Trip) error {
	t.UpdatedAt = time.Now().UTC()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `UPDATE trips SET
		vessel_id = ?, instructor_id = ?, title = ?, description = ?, site_name = ?,
		status = ?, departs_at = ?, returns_at = ?, capacity = ?, min_cert_level = ?,
		price = ?, currency = ?, max_depth_m = ?, updated_at = ?
	WHERE id = ?`,
		t.VesselID.String(), t.InstructorID.String(), t.Title, nullStr(t.Description),
		t.SiteName, t.Status, t.DepartsAt, t.ReturnsAt, t.Capacity, t.MinCertLevel,
		t.Price.String(), t.Currency, nullInt(t.MaxDepthM), t.UpdatedAt, t.ID.String(),
	)
	metrics.RecordDBQuery("update", "trips", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	return requireRowAffected(res)
}

// DeleteTrip removes a trip. Trips with pending or confirmed bookings
// cannot be deleted.
func (db *DB) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	var active int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE trip_id = ? AND status IN ('pending', 'confirmed')`,
		id.String()).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to count active bookings: %w", err)
	}
	if active > 0 {
		return ErrHasActiveBookings
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id.String())
	metrics.RecordDBQuery("delete", "trips", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	return requireRowAffected(res)
}

func scanTrip(row rowScanner) (*models.Trip, error) {
	var (
		t                          models.Trip
		idStr, centerStr           string
		vesselStr, instructorStr   string
		desc                       sql.NullString
		priceStr                   string
		maxDepth                   sql.NullInt64
	)
	err := row.Scan(&idStr, &centerStr, &vesselStr, &instructorStr, &t.Title, &desc,
		&t.SiteName, &t.Status, &t.DepartsAt, &t.ReturnsAt, &t.Capacity,
		&t.MinCertLevel, &priceStr, &t.Currency, &maxDepth,
		&t.CreatedAt, &t.UpdatedAt, &t.SeatsBooked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan trip: %w", err)
	}

	if t.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid trip id %q: %w", idStr, err)
	}
	if t.CenterID, err = uuid.Parse(centerStr); err != nil {
		return nil, fmt.Errorf("invalid center id %q: %w", centerStr, err)
	}
	if t.VesselID, err = uuid.Parse(vesselStr); err != nil {
		return nil, fmt.Errorf("invalid vessel id %q: %w", vesselStr, err)
	}
	if t.InstructorID, err = uuid.Parse(instructorStr); err != nil {
		return nil, fmt.Errorf("invalid instructor id %q: %w", instructorStr, err)
	}
	if t.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("invalid trip price %q: %w", priceStr, err)
	}
	t.Description = strPtr(desc)
	t.MaxDepthM = intPtr(maxDepth)
	return &t, nil
}
