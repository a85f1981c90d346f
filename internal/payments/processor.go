// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package payments applies provider webhook events to bookings.
//
// Every delivery is recorded as a payment row keyed by the provider
// event ID, which makes replayed deliveries idempotent. Events whose
// amount or currency disagree with the booking are quarantined for
// operator review instead of being applied.
package payments

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/pelagos-app/pelagos/internal/booking"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/events"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/metrics"
	"github.com/pelagos-app/pelagos/internal/models"
)

// Webhook processing outcomes, used as the result label on the
// pelagos_webhooks_received_total metric.
const (
	resultApplied     = "applied"
	resultDuplicate   = "duplicate"
	resultQuarantined = "quarantined"
	resultRecorded    = "recorded" // stored but not applied (out-of-order or terminal booking)
)

// Processor turns verified webhook events into payment rows and booking
// transitions.
type Processor struct {
	db       *database.DB
	bookings *booking.Service
	bus      *events.Bus
	provider *ProviderClient
}

// NewProcessor creates a webhook processor. bus may be nil.
func NewProcessor(db *database.DB, bookings *booking.Service, bus *events.Bus) *Processor {
	return &Processor{db: db, bookings: bookings, bus: bus}
}

// WithProvider attaches the provider client used for outbound refund
// requests.
func (p *Processor) WithProvider(client *ProviderClient) *Processor {
	p.provider = client
	return p
}

// RequestRefund asks the provider to refund a cancelled booking. The
// refund lands asynchronously as a payment.refunded webhook; this call
// only kicks it off. No-op when no provider is configured.
func (p *Processor) RequestRefund(ctx context.Context, b *models.Booking) error {
	if p.provider == nil || !p.provider.Enabled() {
		return nil
	}
	return p.provider.RequestRefund(ctx, b.ID.String(), b.Amount, b.Currency)
}

// Process applies one webhook event. It returns a result describing the
// outcome; an error is returned only for unknown bookings and storage
// failures, never for quarantined or out-of-order events.
func (p *Processor) Process(ctx context.Context, ev *models.WebhookEvent) (*models.WebhookResult, error) {
	if !models.IsValidWebhookEventType(ev.EventType) {
		return nil, fmt.Errorf("unsupported event type %q", ev.EventType)
	}

	// Replay check before touching the booking: a duplicate delivery is
	// acknowledged even if the booking was deleted since.
	if existing, err := p.db.GetPaymentByProviderEventID(ctx, ev.EventID); err == nil {
		metrics.RecordWebhook(ev.EventType, resultDuplicate)
		return &models.WebhookResult{
			EventID:     ev.EventID,
			Duplicate:   true,
			Quarantined: existing.Status == models.PaymentQuarantined,
		}, nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	b, err := p.db.GetBooking(ctx, ev.BookingID)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		BookingID:       ev.BookingID,
		ProviderEventID: ev.EventID,
		EventType:       ev.EventType,
		Status:          statusForEvent(ev.EventType),
		Amount:          ev.Amount,
		Currency:        ev.Currency,
		OccurredAt:      ev.OccurredAt,
	}

	if note := p.quarantineNote(ev, b); note != "" {
		payment.Status = models.PaymentQuarantined
		payment.QuarantineNote = &note
	}

	inserted, err := p.db.InsertPayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Lost a race with a concurrent delivery of the same event.
		metrics.RecordWebhook(ev.EventType, resultDuplicate)
		return &models.WebhookResult{EventID: ev.EventID, Duplicate: true}, nil
	}

	if payment.Status == models.PaymentQuarantined {
		logging.Ctx(ctx).Warn().
			Str("event_id", ev.EventID).
			Str("booking_id", ev.BookingID.String()).
			Str("note", *payment.QuarantineNote).
			Msg("payment event quarantined")
		metrics.RecordWebhook(ev.EventType, resultQuarantined)
		p.recordChange(ctx, payment, events.TypePaymentQuarantined)
		return &models.WebhookResult{EventID: ev.EventID, Quarantined: true}, nil
	}

	applied := p.applyToBooking(ctx, ev, b)
	if applied {
		metrics.RecordWebhook(ev.EventType, resultApplied)
	} else {
		metrics.RecordWebhook(ev.EventType, resultRecorded)
	}
	p.recordChange(ctx, payment, eventTypeFor(ev.EventType))

	return &models.WebhookResult{EventID: ev.EventID, Applied: applied}, nil
}

// applyToBooking drives the booking transition implied by the event.
// An invalid transition means the event arrived out of order or the
// booking is already terminal; the payment row stays as the record and
// the booking is left alone.
func (p *Processor) applyToBooking(ctx context.Context, ev *models.WebhookEvent, b *models.Booking) bool {
	var err error
	switch ev.EventType {
	case models.EventPaymentSucceeded:
		_, err = p.bookings.Confirm(ctx, b.ID)
	case models.EventPaymentFailed:
		if b.Status != models.BookingPending {
			err = database.ErrInvalidTransition
			break
		}
		_, err = p.bookings.Cancel(ctx, b.ID, "payments", models.RoleAdmin)
	case models.EventPaymentRefunded:
		if b.Status != models.BookingConfirmed {
			err = database.ErrInvalidTransition
			break
		}
		_, err = p.bookings.Cancel(ctx, b.ID, "payments", models.RoleAdmin)
	}

	if err == nil {
		return true
	}
	if errors.Is(err, database.ErrInvalidTransition) {
		logging.Ctx(ctx).Info().
			Str("event_id", ev.EventID).
			Str("booking_id", b.ID.String()).
			Str("booking_status", b.Status).
			Str("event_type", ev.EventType).
			Msg("payment event recorded without booking transition")
	} else {
		logging.Ctx(ctx).Error().Err(err).
			Str("event_id", ev.EventID).
			Str("booking_id", b.ID.String()).
			Msg("failed to apply payment event to booking")
	}
	return false
}

// quarantineNote returns a non-empty reason when the event must not be
// applied. Refund amounts are not matched against the booking since
// partial refunds are legitimate.
func (p *Processor) quarantineNote(ev *models.WebhookEvent, b *models.Booking) string {
	if ev.EventType == models.EventPaymentRefunded {
		return ""
	}
	if !ev.Amount.Equal(b.Amount) {
		return fmt.Sprintf("amount mismatch: event %s, booking %s", ev.Amount.String(), b.Amount.String())
	}
	if ev.Currency != b.Currency {
		return fmt.Sprintf("currency mismatch: event %s, booking %s", ev.Currency, b.Currency)
	}
	return ""
}

func (p *Processor) recordChange(ctx context.Context, payment *models.Payment, eventType string) {
	payload, err := json.Marshal(payment)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal payment for change log")
		return
	}

	seq, err := p.db.AppendChange(ctx, &models.ChangeLogEntry{
		EntityType: models.EntityPayment,
		EntityID:   payment.ID.String(),
		Op:         models.OpCreate,
		Payload:    string(payload),
	})
	if err != nil {
		logging.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to append payment change")
		return
	}

	if p.bus == nil {
		return
	}
	event := events.NewEvent(eventType, models.EntityPayment, payment.ID.String()).
		WithSeq(seq).
		WithData(payment)
	if err := p.bus.Publish(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_type", eventType).Msg("failed to publish payment event")
	}
}

// ListPayments returns payments, optionally scoped to a booking and a
// status set.
func (p *Processor) ListPayments(ctx context.Context, bookingID *uuid.UUID, statuses []string, limit int) ([]models.Payment, error) {
	return p.db.ListPayments(ctx, bookingID, statuses, limit)
}

func statusForEvent(eventType string) string {
	switch eventType {
	case models.EventPaymentSucceeded:
		return models.PaymentSucceeded
	case models.EventPaymentFailed:
		return models.PaymentFailed
	default:
		return models.PaymentRefunded
	}
}

func eventTypeFor(webhookType string) string {
	switch webhookType {
	case models.EventPaymentSucceeded:
		return events.TypePaymentSucceeded
	case models.EventPaymentFailed:
		return events.TypePaymentFailed
	default:
		return events.TypePaymentRefunded
	}
}
