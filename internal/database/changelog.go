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

// AppendChange records an entity change in the sync log and returns the
// assigned sequence number. Sequence numbers are strictly increasing and
// never reused.
func (db *DB) AppendChange(ctx context.Context, entry *models.ChangeLogEntry) (int64, error) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}

	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `INSERT INTO change_log (
		entity_type, entity_id, op, payload, occurred_at
	) VALUES (?, ?, ?, ?, ?) RETURNING seq`,
		entry.EntityType, entry.EntityID, entry.Op, entry.Payload, entry.OccurredAt)

	var seq int64
	err := row.Scan(&seq)
	metrics.RecordDBQuery("insert", "change_log", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to append change: %w", err)
	}
	entry.Seq = seq
	return seq, nil
}

// ListChangesSince returns up to limit change entries with seq strictly
// greater than afterSeq, in ascending seq order.
func (db *DB) ListChangesSince(ctx context.Context, afterSeq int64, limit int) ([]models.ChangeLogEntry, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT
		seq, entity_type, entity_id, op, payload, occurred_at
	FROM change_log WHERE seq > ? ORDER BY seq ASC LIMIT ?`, afterSeq, limit)
	metrics.RecordDBQuery("select", "change_log", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	defer closeQuietly(rows)

	var entries []models.ChangeLogEntry
	for rows.Next() {
		var e models.ChangeLogEntry
		if err := rows.Scan(&e.Seq, &e.EntityType, &e.EntityID, &e.Op, &e.Payload, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan change entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MinSeq returns the lowest sequence number still present in the change
// log, or 0 when the log is empty.
func (db *DB) MinSeq(ctx context.Context) (int64, error) {
	var min sql.NullInt64
	err := db.conn.QueryRowContext(ctx, `SELECT MIN(seq) FROM change_log`).Scan(&min)
	if err != nil {
		return 0, fmt.Errorf("failed to read min seq: %w", err)
	}
	if !min.Valid {
		return 0, nil
	}
	return min.Int64, nil
}

// MaxSeq returns the highest assigned sequence number, or 0 when the log
// is empty.
func (db *DB) MaxSeq(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := db.conn.QueryRowContext(ctx, `SELECT MAX(seq) FROM change_log`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max seq: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// CountChanges returns the number of retained change log entries.
func (db *DB) CountChanges(ctx context.Context) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM change_log`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count changes: %w", err)
	}
	return n, nil
}

// PruneChangesBefore deletes change entries older than the cutoff and
// returns the number of rows removed. Clients holding cursors below the
// remaining minimum must perform a full resync.
func (db *DB) PruneChangesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM change_log WHERE occurred_at < ?`, cutoff)
	metrics.RecordDBQuery("delete", "change_log", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to prune change log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// RegisterDevice upserts a device registration. An existing device keeps
// its sync cursor; platform and push token are refreshed.
func (db *DB) RegisterDevice(ctx context.Context, d *models.Device) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.LastSeenAt = &now

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO devices (
		id, username, platform, push_token, last_seq, last_seen_at, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		username = excluded.username,
		platform = excluded.platform,
		push_token = excluded.push_token,
		last_seen_at = excluded.last_seen_at`,
		d.ID, d.Username, d.Platform, nullStr(d.PushToken), d.LastSeq, now, d.CreatedAt)
	metrics.RecordDBQuery("upsert", "devices", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// GetDevice fetches a device registration by ID.
func (db *DB) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT
		id, username, platform, push_token, last_seq, last_seen_at, created_at
	FROM devices WHERE id = ?`, id)

	var (
		d         models.Device
		pushToken sql.NullString
		lastSeen  sql.NullTime
	)
	err := row.Scan(&d.ID, &d.Username, &d.Platform, &pushToken, &d.LastSeq, &lastSeen, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan device: %w", err)
	}
	d.PushToken = strPtr(pushToken)
	d.LastSeenAt = timePtr(lastSeen)
	return &d, nil
}

// UpdateDeviceCursor advances a device's acknowledged sync position.
func (db *DB) UpdateDeviceCursor(ctx context.Context, id string, lastSeq int64) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE devices SET last_seq = ?, last_seen_at = ? WHERE id = ?`,
		lastSeq, time.Now().UTC(), id)
	metrics.RecordDBQuery("update", "devices", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update device cursor: %w", err)
	}
	return requireRowAffected(res)
}

// ListDevicesForUser returns all registered devices for a user, most
// recently seen first.
func (db *DB) ListDevicesForUser(ctx context.Context, username string) ([]models.Device, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT
		id, username, platform, push_token, last_seq, last_seen_at, created_at
	FROM devices WHERE username = ? ORDER BY last_seen_at DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer closeQuietly(rows)

	var devices []models.Device
	for rows.Next() {
		var (
			d         models.Device
			pushToken sql.NullString
			lastSeen  sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.Username, &d.Platform, &pushToken, &d.LastSeq, &lastSeen, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		d.PushToken = strPtr(pushToken)
		d.LastSeenAt = timePtr(lastSeen)
		devices = append(devices, d)
	}
	return devices, rows.Err()
}
