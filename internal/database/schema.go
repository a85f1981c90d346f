// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pelagos-app/pelagos/internal/models"
)

// createTables creates the full schema. All columns are defined in the
// initial CREATE TABLE statements; money columns are DECIMAL(18,2) and
// IDs are stored as canonical UUID strings.
func (db *DB) createTables() error {
	queries := []string{
		// Monotonic sequence backing the sync change log.
		`CREATE SEQUENCE IF NOT EXISTS change_log_seq START 1`,

		`CREATE TABLE IF NOT EXISTS users (
			username      VARCHAR PRIMARY KEY,
			email         VARCHAR NOT NULL,
			role          VARCHAR NOT NULL,
			password_hash VARCHAR NOT NULL,
			cert_level    VARCHAR,
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS dive_centers (
			id          VARCHAR PRIMARY KEY,
			name        VARCHAR NOT NULL,
			description VARCHAR,
			email       VARCHAR NOT NULL,
			phone       VARCHAR,
			country     VARCHAR NOT NULL,
			region      VARCHAR,
			latitude    DOUBLE,
			longitude   DOUBLE,
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS vessels (
			id         VARCHAR PRIMARY KEY,
			center_id  VARCHAR NOT NULL,
			name       VARCHAR NOT NULL,
			capacity   INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS instructors (
			id         VARCHAR PRIMARY KEY,
			center_id  VARCHAR NOT NULL,
			name       VARCHAR NOT NULL,
			agency     VARCHAR NOT NULL,
			cert_level VARCHAR NOT NULL,
			bio        VARCHAR,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS trips (
			id             VARCHAR PRIMARY KEY,
			center_id      VARCHAR NOT NULL,
			vessel_id      VARCHAR NOT NULL,
			instructor_id  VARCHAR NOT NULL,
			title          VARCHAR NOT NULL,
			description    VARCHAR,
			site_name      VARCHAR NOT NULL,
			status         VARCHAR NOT NULL,
			departs_at     TIMESTAMP NOT NULL,
			returns_at     TIMESTAMP NOT NULL,
			capacity       INTEGER NOT NULL,
			min_cert_level VARCHAR NOT NULL,
			price          DECIMAL(18,2) NOT NULL,
			currency       VARCHAR NOT NULL,
			max_depth_m    INTEGER,
			created_at     TIMESTAMP NOT NULL,
			updated_at     TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id              VARCHAR PRIMARY KEY,
			trip_id         VARCHAR NOT NULL,
			diver_username  VARCHAR NOT NULL,
			seats           INTEGER NOT NULL,
			status          VARCHAR NOT NULL,
			amount          DECIMAL(18,2) NOT NULL,
			currency        VARCHAR NOT NULL,
			hold_expires_at TIMESTAMP,
			confirmed_at    TIMESTAMP,
			cancelled_at    TIMESTAMP,
			created_at      TIMESTAMP NOT NULL,
			updated_at      TIMESTAMP NOT NULL
		)`,

		// provider_event_id is the idempotency key: replayed webhook
		// deliveries hit the unique constraint and are ignored.
		`CREATE TABLE IF NOT EXISTS payments (
			id                VARCHAR PRIMARY KEY,
			booking_id        VARCHAR NOT NULL,
			provider_event_id VARCHAR NOT NULL UNIQUE,
			event_type        VARCHAR NOT NULL,
			status            VARCHAR NOT NULL,
			amount            DECIMAL(18,2) NOT NULL,
			currency          VARCHAR NOT NULL,
			quarantine_note   VARCHAR,
			occurred_at       TIMESTAMP NOT NULL,
			received_at       TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS change_log (
			seq         BIGINT PRIMARY KEY DEFAULT nextval('change_log_seq'),
			entity_type VARCHAR NOT NULL,
			entity_id   VARCHAR NOT NULL,
			op          VARCHAR NOT NULL,
			payload     VARCHAR NOT NULL,
			occurred_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS devices (
			id           VARCHAR PRIMARY KEY,
			username     VARCHAR NOT NULL,
			platform     VARCHAR NOT NULL,
			push_token   VARCHAR,
			last_seq     BIGINT NOT NULL DEFAULT 0,
			last_seen_at TIMESTAMP,
			created_at   TIMESTAMP NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// createIndexes creates secondary indexes for the hot query paths.
func (db *DB) createIndexes() error {
	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_vessels_center ON vessels(center_id)`,
		`CREATE INDEX IF NOT EXISTS idx_instructors_center ON instructors(center_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_center ON trips(center_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_departs ON trips(departs_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_trip ON bookings(trip_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_diver ON bookings(diver_username)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_hold ON bookings(status, hold_expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_booking ON payments(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_change_log_occurred ON change_log(occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_username ON devices(username)`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// seedDemoData inserts a small demo catalog for local development and
// screenshot environments. Idempotent via fixed IDs with ON CONFLICT.
func (db *DB) seedDemoData(ctx context.Context) error {
	centerID := uuid.MustParse("00000000-0000-4000-8000-000000000001")
	vesselID := uuid.MustParse("00000000-0000-4000-8000-000000000002")
	instructorID := uuid.MustParse("00000000-0000-4000-8000-000000000003")
	tripID := uuid.MustParse("00000000-0000-4000-8000-000000000004")
	now := time.Now().UTC()

	center := &models.DiveCenter{
		ID:      centerID,
		Name:    "Thistlegorm Divers",
		Email:   "hello@thistlegorm-divers.example",
		Country: "EG",
	}
	if err := db.InsertDiveCenter(ctx, center); err != nil {
		return err
	}

	vessel := &models.Vessel{ID: vesselID, CenterID: centerID, Name: "MY Oceanos", Capacity: 16}
	if err := db.InsertVessel(ctx, vessel); err != nil {
		return err
	}

	instructor := &models.Instructor{
		ID: instructorID, CenterID: centerID,
		Name: "A. Mansour", Agency: "PADI", CertLevel: models.CertInstructor,
	}
	if err := db.InsertInstructor(ctx, instructor); err != nil {
		return err
	}

	trip := &models.Trip{
		ID: tripID, CenterID: centerID, VesselID: vesselID, InstructorID: instructorID,
		Title: "SS Thistlegorm wreck, morning", SiteName: "SS Thistlegorm",
		Status:    models.TripScheduled,
		DepartsAt: now.Add(7 * 24 * time.Hour), ReturnsAt: now.Add(7*24*time.Hour + 6*time.Hour),
		Capacity: 12, MinCertLevel: models.CertAdvanced,
		Price: mustDecimal("145.00"), Currency: "USD",
	}
	return db.InsertTrip(ctx, trip)
}
