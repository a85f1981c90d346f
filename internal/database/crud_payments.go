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

const paymentColumns = `
	id, booking_id, provider_event_id, event_type, status, CAST(amount AS VARCHAR),
	currency, quarantine_note, occurred_at, received_at`

// InsertPayment records a payment event. ON CONFLICT DO NOTHING on the
// provider_event_id unique constraint makes replayed webhook deliveries
// idempotent; the returned bool is false when the event was already
// recorded.
func (db *DB) InsertPayment(ctx context.Context, p *models.Payment) (bool, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ReceivedAt.IsZero() {
		p.ReceivedAt = time.Now().UTC()
	}
	if p.OccurredAt.IsZero() {
		p.OccurredAt = p.ReceivedAt
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `INSERT INTO payments (
		id, booking_id, provider_event_id, event_type, status, amount, currency,
		quarantine_note, occurred_at, received_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		p.ID.String(), p.BookingID.String(), p.ProviderEventID, p.EventType, p.Status,
		p.Amount.String(), p.Currency, nullStr(p.QuarantineNote), p.OccurredAt, p.ReceivedAt,
	)
	metrics.RecordDBQuery("insert", "payments", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("failed to insert payment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// GetPayment fetches a payment by ID.
func (db *DB) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM payments WHERE id = ?`, paymentColumns), id.String())

	p, err := scanPayment(row)
	metrics.RecordDBQuery("select", "payments", time.Since(start), err)
	return p, err
}

// GetPaymentByProviderEventID fetches a payment by its idempotency key.
func (db *DB) GetPaymentByProviderEventID(ctx context.Context, eventID string) (*models.Payment, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM payments WHERE provider_event_id = ?`, paymentColumns), eventID)

	p, err := scanPayment(row)
	metrics.RecordDBQuery("select", "payments", time.Since(start), err)
	return p, err
}

// ListPayments returns payments, optionally filtered by booking or
// status, newest first.
func (db *DB) ListPayments(ctx context.Context, bookingID *uuid.UUID, statuses []string, limit int) ([]models.Payment, error) {
	wb := query.NewWhereBuilder()
	if bookingID != nil {
		wb.AddEquals("booking_id", bookingID.String())
	}
	wb.AddIn("status", statuses)
	whereClause, args := wb.Build()
	args = append(args, limit)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM payments WHERE %s ORDER BY received_at DESC, id DESC LIMIT ?`,
		paymentColumns, whereClause), args...)
	metrics.RecordDBQuery("select", "payments", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer closeQuietly(rows)

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p          models.Payment
		idStr      string
		bookingStr string
		amountStr  string
		note       sql.NullString
	)
	err := row.Scan(&idStr, &bookingStr, &p.ProviderEventID, &p.EventType, &p.Status,
		&amountStr, &p.Currency, &note, &p.OccurredAt, &p.ReceivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	if p.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid payment id %q: %w", idStr, err)
	}
	if p.BookingID, err = uuid.Parse(bookingStr); err != nil {
		return nil, fmt.Errorf("invalid booking id %q: %w", bookingStr, err)
	}
	if p.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("invalid payment amount %q: %w", amountStr, err)
	}
	p.QuarantineNote = strPtr(note)
	return &p, nil
}
