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

	"github.com/pelagos-app/pelagos/internal/metrics"
	"github.com/pelagos-app/pelagos/internal/models"
)

// InsertUser creates a user account. Returns ErrDuplicate when the
// username is taken.
func (db *DB) InsertUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `INSERT INTO users (
		username, email, role, password_hash, cert_level, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		u.Username, u.Email, u.Role, u.PasswordHash, nullStr(u.CertLevel), u.CreatedAt, u.UpdatedAt,
	)
	metrics.RecordDBQuery("insert", "users", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: username %s", ErrDuplicate, u.Username)
	}
	return nil
}

// GetUser fetches a user by username.
func (db *DB) GetUser(ctx context.Context, username string) (*models.User, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT
		username, email, role, password_hash, cert_level, created_at, updated_at
	FROM users WHERE username = ?`, username)

	u, err := scanUser(row)
	metrics.RecordDBQuery("select", "users", time.Since(start), err)
	return u, err
}

// UpdateUserRole changes a user's role.
func (db *DB) UpdateUserRole(ctx context.Context, username, role string) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE username = ?`,
		role, time.Now().UTC(), username)
	metrics.RecordDBQuery("update", "users", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return requireRowAffected(res)
}

// UpdateUserCertLevel changes a diver's certification level.
func (db *DB) UpdateUserCertLevel(ctx context.Context, username, certLevel string) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET cert_level = ?, updated_at = ? WHERE username = ?`,
		certLevel, time.Now().UTC(), username)
	metrics.RecordDBQuery("update", "users", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update user cert level: %w", err)
	}
	return requireRowAffected(res)
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		certLevel sql.NullString
	)
	err := row.Scan(&u.Username, &u.Email, &u.Role, &u.PasswordHash, &certLevel, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.CertLevel = strPtr(certLevel)
	return &u, nil
}
