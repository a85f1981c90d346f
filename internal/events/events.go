// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package events carries domain events between Pelagos components over
// an in-process Watermill bus. Booking, payment, and trip changes are
// published here; subscribers include the websocket hub, the
// notification dispatcher, and (when enabled) the NATS JetStream
// forwarder for external consumers.
package events

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaVersion is the current event schema version. Increment on
// breaking changes to Event.
const SchemaVersion = 1

// Topics on the in-process bus. The NATS forwarder maps these to
// JetStream subjects under the pelagos.> hierarchy.
const (
	TopicBookings = "bookings.events"
	TopicPayments = "payments.events"
	TopicTrips    = "trips.events"
)

// Event types.
const (
	TypeBookingCreated   = "booking.created"
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingCancelled = "booking.cancelled"
	TypeBookingExpired   = "booking.expired"

	TypePaymentSucceeded   = "payment.succeeded"
	TypePaymentFailed      = "payment.failed"
	TypePaymentRefunded    = "payment.refunded"
	TypePaymentQuarantined = "payment.quarantined"

	TypeTripCreated   = "trip.created"
	TypeTripUpdated   = "trip.updated"
	TypeTripCancelled = "trip.cancelled"
	TypeTripDeleted   = "trip.deleted"
)

// Event is the canonical envelope for Pelagos domain events.
type Event struct {
	SchemaVersion int             `json:"schema_version"`
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	Username      string          `json:"username,omitempty"`
	Seq           int64           `json:"seq,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// NewEvent creates an event with a unique ID, timestamp, and schema
// version.
func NewEvent(eventType, entityType, entityID string) *Event {
	return &Event{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		Type:          eventType,
		EntityType:    entityType,
		EntityID:      entityID,
		OccurredAt:    time.Now().UTC(),
	}
}

// WithData attaches a JSON-serializable payload. Marshal errors leave
// Data empty; the envelope fields are still published.
func (e *Event) WithData(v interface{}) *Event {
	data, err := json.Marshal(v)
	if err == nil {
		e.Data = data
	}
	return e
}

// WithUsername records the acting user.
func (e *Event) WithUsername(username string) *Event {
	e.Username = username
	return e
}

// WithSeq records the change log sequence assigned to this event.
func (e *Event) WithSeq(seq int64) *Event {
	e.Seq = seq
	return e
}

// TopicFor returns the bus topic for an event type.
func TopicFor(eventType string) string {
	switch {
	case len(eventType) >= 7 && eventType[:7] == "booking":
		return TopicBookings
	case len(eventType) >= 7 && eventType[:7] == "payment":
		return TopicPayments
	default:
		return TopicTrips
	}
}
