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

// InsertInstructor inserts an instructor. Idempotent on ID.
func (db *DB) InsertInstructor(ctx context.Context, ins *models.Instructor) error {
	if ins.ID == uuid.Nil {
		ins.ID = uuid.New()
	}
	now := time.Now().UTC()
	if ins.CreatedAt.IsZero() {
		ins.CreatedAt = now
	}
	ins.UpdatedAt = now

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO instructors (
		id, center_id, name, agency, cert_level, bio, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		ins.ID.String(), ins.CenterID.String(), ins.Name, ins.Agency, ins.CertLevel,
		nullStr(ins.Bio), ins.CreatedAt, ins.UpdatedAt,
	)
	metrics.RecordDBQuery("insert", "instructors", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert instructor: %w", err)
	}
	return nil
}

// GetInstructor fetches an instructor by ID.
func (db *DB) GetInstructor(ctx context.Context, id uuid.UUID) (*models.Instructor, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT
		id, center_id, name, agency, cert_level, bio, created_at, updated_at
	FROM instructors WHERE id = ?`, id.String())

	ins, err := scanInstructor(row)
	metrics.RecordDBQuery("select", "instructors", time.Since(start), err)
	return ins, err
}

// ListInstructors returns instructors, optionally filtered by center,
// newest first.
func (db *DB) ListInstructors(ctx context.Context, centerID *uuid.UUID, limit int, cursor *models.ListCursor) ([]models.Instructor, error) {
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
		id, center_id, name, agency, cert_level, bio, created_at, updated_at
	FROM instructors WHERE %s ORDER BY created_at DESC, id DESC LIMIT ?`, whereClause), args...)
	metrics.RecordDBQuery("select", "instructors", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list instructors: %w", err)
	}
	defer closeQuietly(rows)

	var instructors []models.Instructor
	for rows.Next() {
		ins, err := scanInstructor(rows)
		if err != nil {
			return nil, err
		}
		instructors = append(instructors, *ins)
	}
	return instructors, rows.Err()
}

// UpdateInstructor updates the mutable fields of an instructor.
func (db *DB) UpdateInstructor(ctx context.Context, ins *models.Instructor) error {
	ins.UpdatedAt = time.Now().UTC()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `UPDATE instructors SET
		name = ?, agency = ?, cert_level = ?, bio = ?, updated_at = ?
	WHERE id = ?`, ins.Name, ins.Agency, ins.CertLevel, nullStr(ins.Bio), ins.UpdatedAt, ins.ID.String())
	metrics.RecordDBQuery("update", "instructors", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update instructor: %w", err)
	}
	return requireRowAffected(res)
}

// DeleteInstructor removes an instructor by ID.
func (db *DB) DeleteInstructor(ctx context.Context, id uuid.UUID) error {
	var trips int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trips WHERE instructor_id = ?`, id.String()).Scan(&trips)
	if err != nil {
		return fmt.Errorf("failed to count instructor trips: %w", err)
	}
	if trips > 0 {
		return ErrInUse
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM instructors WHERE id = ?`, id.String())
	metrics.RecordDBQuery("delete", "instructors", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete instructor: %w", err)
	}
	return requireRowAffected(res)
}

func scanInstructor(row rowScanner) (*models.Instructor, error) {
	var (
		ins         models.Instructor
		idStr       string
		centerIDStr string
		bio         sql.NullString
	)
	err := row.Scan(&idStr, &centerIDStr, &ins.Name, &ins.Agency, &ins.CertLevel, &bio, &ins.CreatedAt, &ins.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan instructor: %w", err)
	}

	if ins.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid instructor id %q: %w", idStr, err)
	}
	if ins.CenterID, err = uuid.Parse(centerIDStr); err != nil {
		return nil, fmt.Errorf("invalid center id %q: %w", centerIDStr, err)
	}
	ins.Bio = strPtr(bio)
	return &ins, nil
}
