// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package models

import (
	"time"
)

// Change log entity types.
const (
	EntityCenter     = "center"
	EntityVessel     = "vessel"
	EntityInstructor = "instructor"
	EntityTrip       = "trip"
	EntityBooking    = "booking"
	EntityPayment    = "payment"
)

// Change log operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeLogEntry is one row of the monotonic change log that backs the
// mobile delta-sync feed. Seq is assigned by the database and strictly
// increases; clients resume from their last seen seq.
type ChangeLogEntry struct {
	Seq        int64     `json:"seq"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Op         string    `json:"op"`
	Payload    string    `json:"payload"` // JSON snapshot of the entity after the mutation
	OccurredAt time.Time `json:"occurred_at"`
}

// SyncChangesResponse is the delta-sync page returned by GET /sync/changes.
type SyncChangesResponse struct {
	Changes    []ChangeLogEntry `json:"changes"`
	NextCursor string           `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
	FullResync bool             `json:"full_resync,omitempty"` // true when no cursor was supplied
}

// Device is a registered mobile client. LastSeq records the cursor of
// its most recent sync pull.
type Device struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Platform   string     `json:"platform"` // ios, android
	PushToken  *string    `json:"push_token,omitempty"`
	LastSeq    int64      `json:"last_seq"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RegisterDeviceRequest registers or updates a mobile device.
type RegisterDeviceRequest struct {
	DeviceID  string  `json:"device_id" validate:"required,max=128"`
	Platform  string  `json:"platform" validate:"required,oneof=ios android"`
	PushToken *string `json:"push_token,omitempty" validate:"omitempty,max=512"`
}
