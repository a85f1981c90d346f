// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment statuses.
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"

	// PaymentQuarantined marks a webhook event whose amount or currency
	// did not match the booking. Quarantined events are stored for
	// operator review and never applied to the booking.
	PaymentQuarantined = "quarantined"
)

// Webhook event types accepted on /payments/webhook.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
)

// ValidWebhookEventTypes contains the accepted webhook event types.
var ValidWebhookEventTypes = []string{EventPaymentSucceeded, EventPaymentFailed, EventPaymentRefunded}

// IsValidWebhookEventType checks whether an event type is accepted.
func IsValidWebhookEventType(eventType string) bool {
	for _, t := range ValidWebhookEventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// Payment records a provider payment event applied (or quarantined)
// against a booking. ProviderEventID is the idempotency key: replayed
// webhook deliveries insert with ON CONFLICT DO NOTHING and are
// acknowledged without side effects.
type Payment struct {
	ID              uuid.UUID       `json:"id"`
	BookingID       uuid.UUID       `json:"booking_id"`
	ProviderEventID string          `json:"provider_event_id"`
	EventType       string          `json:"event_type"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	QuarantineNote  *string         `json:"quarantine_note,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
	ReceivedAt      time.Time       `json:"received_at"`
}

// WebhookEvent is the provider webhook payload.
//
// Example:
//
//	{
//	  "event_id": "evt_9f82ab",
//	  "event_type": "payment.succeeded",
//	  "booking_id": "7e2f6c1a-...",
//	  "amount": "240.00",
//	  "currency": "EUR",
//	  "occurred_at": "2026-08-30T12:00:00Z"
//	}
type WebhookEvent struct {
	EventID    string          `json:"event_id" validate:"required,max=128"`
	EventType  string          `json:"event_type" validate:"required"`
	BookingID  uuid.UUID       `json:"booking_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency" validate:"required,len=3"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// WebhookResult is the response body for webhook deliveries.
type WebhookResult struct {
	EventID     string `json:"event_id"`
	Duplicate   bool   `json:"duplicate,omitempty"`
	Quarantined bool   `json:"quarantined,omitempty"`
	Applied     bool   `json:"applied"`
}

// PaymentsResponse wraps a payment listing with pagination info.
type PaymentsResponse struct {
	Payments   []Payment      `json:"payments"`
	Pagination PaginationInfo `json:"pagination"`
}
