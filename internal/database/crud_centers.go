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

// InsertDiveCenter inserts a dive center. Idempotent on ID.
func (db *DB) InsertDiveCenter(ctx context.Context, c *models.DiveCenter) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO dive_centers (
		id, name, description, email, phone, country, region, latitude, longitude, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		c.ID.String(), c.Name, nullStr(c.Description), c.Email, nullStr(c.Phone),
		c.Country, nullStr(c.Region), nullFloat(c.Latitude), nullFloat(c.Longitude),
		c.CreatedAt, c.UpdatedAt,
	)
	metrics.RecordDBQuery("insert", "dive_centers", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert dive center: %w", err)
	}
	return nil
}

// GetDiveCenter fetches a dive center by ID.
func (db *DB) GetDiveCenter(ctx context.Context, id uuid.UUID) (*models.DiveCenter, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT
		id, name, description, email, phone, country, region, latitude, longitude, created_at, updated_at
	FROM dive_centers WHERE id = ?`, id.String())

	c, err := scanDiveCenter(row)
	metrics.RecordDBQuery("select", "dive_centers", time.Since(start), err)
	return c, err
}

// ListDiveCenters returns centers ordered by creation time, newest first,
// with cursor pagination. A nil cursor starts from the head.
func (db *DB) ListDiveCenters(ctx context.Context, country *string, limit int, cursor *models.ListCursor) ([]models.DiveCenter, error) {
	wb := query.NewWhereBuilder()
	if country != nil {
		wb.AddEquals("country", *country)
	}
	if cursor != nil {
		wb.AddClause("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	whereClause, args := wb.Build()
	args = append(args, limit)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(`SELECT
		id, name, description, email, phone, country, region, latitude, longitude, created_at, updated_at
	FROM dive_centers WHERE %s ORDER BY created_at DESC, id DESC LIMIT ?`, whereClause), args...)
	metrics.RecordDBQuery("select", "dive_centers", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list dive centers: %w", err)
	}
	defer closeQuietly(rows)

	var centers []models.DiveCenter
	for rows.Next() {
		c, err := scanDiveCenter(rows)
		if err != nil {
			return nil, err
		}
		centers = append(centers, *c)
	}
	return centers, rows.Err()
}

// UpdateDiveCenter updates all mutable fields of a center.
func (db *DB) UpdateDiveCenter(ctx context.Context, c *models.DiveCenter) error {
	c.UpdatedAt = time.Now().UTC()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `UPDATE dive_centers SET
		name = ?, description = ?, email = ?, phone = ?, country = ?, region = ?,
		latitude = ?, longitude = ?, updated_at = ?
	WHERE id = ?`,
		c.Name, nullStr(c.Description), c.Email, nullStr(c.Phone), c.Country,
		nullStr(c.Region), nullFloat(c.Latitude), nullFloat(c.Longitude),
		c.UpdatedAt, c.ID.String(),
	)
	metrics.RecordDBQuery("update", "dive_centers", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update dive center: %w", err)
	}
	return requireRowAffected(res)
}

// DeleteDiveCenter removes a center by ID. Centers that still own
// vessels, instructors, or trips cannot be deleted.
func (db *DB) DeleteDiveCenter(ctx context.Context, id uuid.UUID) error {
	var dependents int
	err := db.conn.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM vessels WHERE center_id = ?)
		      + (SELECT COUNT(*) FROM instructors WHERE center_id = ?)
		      + (SELECT COUNT(*) FROM trips WHERE center_id = ?)`,
		id.String(), id.String(), id.String()).Scan(&dependents)
	if err != nil {
		return fmt.Errorf("failed to count center dependents: %w", err)
	}
	if dependents > 0 {
		return ErrInUse
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM dive_centers WHERE id = ?`, id.String())
	metrics.RecordDBQuery("delete", "dive_centers", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete dive center: %w", err)
	}
	return requireRowAffected(res)
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDiveCenter(row rowScanner) (*models.DiveCenter, error) {
	var (
		c        models.DiveCenter
		idStr    string
		desc     sql.NullString
		phone    sql.NullString
		region   sql.NullString
		lat, lon sql.NullFloat64
	)
	err := row.Scan(&idStr, &c.Name, &desc, &c.Email, &phone, &c.Country, &region, &lat, &lon, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan dive center: %w", err)
	}

	c.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid dive center id %q: %w", idStr, err)
	}
	c.Description = strPtr(desc)
	c.Phone = strPtr(phone)
	c.Region = strPtr(region)
	c.Latitude = floatPtr(lat)
	c.Longitude = floatPtr(lon)
	return &c, nil
}

// requireRowAffected maps zero affected rows to ErrNotFound.
func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
