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

	"github.com/pelagos-app/pelagos/internal/database/query"
	"github.com/pelagos-app/pelagos/internal/metrics"
	"github.com/pelagos-app/pelagos/internal/models"
)

// InsertVessel inserts a vessel. Idempotent on ID.
func (db *DB) InsertVessel(ctx context.Context, v *models.Vessel) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO vessels (
		id, center_id, name, capacity, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		v.ID.String(), v.CenterID.String(), v.Name, v.Capacity, v.CreatedAt, v.UpdatedAt,
	)
	metrics.RecordDBQuery("insert", "vessels", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert vessel: %w", err)
	}
	return nil
}

// GetVessel fetches a vessel by ID.
func (db *DB) GetVessel(ctx context.Context, id uuid.UUID) (*models.Vessel, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT
		id, center_id, name, capacity, created_at, updated_at
	FROM vessels WHERE id = ?`, id.String())

	v, err := scanVessel(row)
	metrics.RecordDBQuery("select", "vessels", time.Since(start), err)
	return v, err
}

// ListVessels returns vessels, optionally filtered by center, newest first.
func (db *DB) ListVessels(ctx context.Context, centerID *uuid.UUID, limit int, cursor *models.ListCursor) ([]models.Vessel, error) {
	wb := query.NewWhereBuilder()
	if centerID != nil {
		wb.AddEquals("center_id", centerID.String())
	}
	if cursor != nil {
		wb.AddClause("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	whereClause, args := wb.Build()
	args = append(args, limit)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(`SELECT
		id, center_id, name, capacity, created_at, updated_at
	FROM vessels WHERE %s ORDER BY created_at DESC, id DESC LIMIT ?`, whereClause), args...)
	metrics.RecordDBQuery("select", "vessels", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list vessels: %w", err)
	}
	defer closeQuietly(rows)

	var vessels []models.Vessel
	for rows.Next() {
		v, err := scanVessel(rows)
		if err != nil {
			return nil, err
		}
		vessels = append(vessels, *v)
	}
	return vessels, rows.Err()
}

// UpdateVessel updates the mutable fields of a vessel.
func (db *DB) UpdateVessel(ctx context.Context, v *models.Vessel) error {
	v.UpdatedAt = time.Now().UTC()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `UPDATE vessels SET
		name = ?, capacity = ?, updated_at = ?
	WHERE id = ?`, v.Name, v.Capacity, v.UpdatedAt, v.ID.String())
	metrics.RecordDBQuery("update", "vessels", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update vessel: %w", err)
	}
	return requireRowAffected(res)
}

// DeleteVessel removes a vessel by ID.
func (db *DB) DeleteVessel(ctx context.Context, id uuid.UUID) error {
	var trips int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trips WHERE vessel_id = ?`, id.String()).Scan(&trips)
	if err != nil {
		return fmt.Errorf("failed to count vessel trips: %w", err)
	}
	if trips > 0 {
		return ErrInUse
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM vessels WHERE id = ?`, id.String())
	metrics.RecordDBQuery("delete", "vessels", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete vessel: %w", err)
	}
	return requireRowAffected(res)
}

func scanVessel(row rowScanner) (*models.Vessel, error) {
	var (
		v           models.Vessel
		idStr       string
		centerIDStr string
	)
	err := row.Scan(&idStr, &centerIDStr, &v.Name, &v.Capacity, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan vessel: %w", err)
	}

	if v.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid vessel id %q: %w", idStr, err)
	}
	if v.CenterID, err = uuid.Parse(centerIDStr); err != nil {
		return nil, fmt.Errorf("invalid center id %q: %w", centerIDStr, err)
	}
	return &v, nil
}
