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

// Certification levels ordered from entry level to professional.
// Trip.MinCertLevel gates who may book a trip.
const (
	CertOpenWater  = "open_water"
	CertAdvanced   = "advanced"
	CertRescue     = "rescue"
	CertDivemaster = "divemaster"
	CertInstructor = "instructor"
)

// certRank orders certification levels for comparison.
var certRank = map[string]int{
	CertOpenWater:  1,
	CertAdvanced:   2,
	CertRescue:     3,
	CertDivemaster: 4,
	CertInstructor: 5,
}

// ValidCertLevels contains all recognized certification levels.
var ValidCertLevels = []string{CertOpenWater, CertAdvanced, CertRescue, CertDivemaster, CertInstructor}

// IsValidCertLevel checks whether a certification level is recognized.
func IsValidCertLevel(level string) bool {
	_, ok := certRank[level]
	return ok
}

// CertLevelAtLeast reports whether have meets or exceeds want.
// Unknown levels never satisfy a requirement.
func CertLevelAtLeast(have, want string) bool {
	h, ok := certRank[have]
	if !ok {
		return false
	}
	w, ok := certRank[want]
	if !ok {
		return false
	}
	return h >= w
}

// DiveCenter is an operator that owns vessels, employs instructors and
// schedules trips.
type DiveCenter struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone,omitempty"`
	Country     string    `json:"country"` // ISO 3166-1 alpha-2
	Region      *string   `json:"region,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Vessel is a boat operated by a dive center. Capacity bounds the seat
// count of any trip scheduled on it.
type Vessel struct {
	ID        uuid.UUID `json:"id"`
	CenterID  uuid.UUID `json:"center_id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Instructor is a certified dive professional attached to a center.
type Instructor struct {
	ID        uuid.UUID `json:"id"`
	CenterID  uuid.UUID `json:"center_id"`
	Name      string    `json:"name"`
	Agency    string    `json:"agency"` // e.g. PADI, SSI, CMAS
	CertLevel string    `json:"cert_level"`
	Bio       *string   `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Trip statuses.
const (
	TripScheduled = "scheduled"
	TripCancelled = "cancelled"
	TripCompleted = "completed"
)

// Trip is a scheduled dive outing with bookable seats.
//
// Invariants enforced at write time:
//   - Vessel and lead instructor belong to the same center as the trip.
//   - Capacity does not exceed the vessel capacity.
//   - Price is an exact decimal with an ISO-4217 currency code.
type Trip struct {
	ID           uuid.UUID       `json:"id"`
	CenterID     uuid.UUID       `json:"center_id"`
	VesselID     uuid.UUID       `json:"vessel_id"`
	InstructorID uuid.UUID       `json:"instructor_id"`
	Title        string          `json:"title"`
	Description  *string         `json:"description,omitempty"`
	SiteName     string          `json:"site_name"`
	Status       string          `json:"status"`
	DepartsAt    time.Time       `json:"departs_at"`
	ReturnsAt    time.Time       `json:"returns_at"`
	Capacity     int             `json:"capacity"`
	SeatsBooked  int             `json:"seats_booked"` // derived: seats held by active bookings
	MinCertLevel string          `json:"min_cert_level"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"` // ISO 4217
	MaxDepthM    *int            `json:"max_depth_m,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// SeatsRemaining returns the bookable seat count.
func (t *Trip) SeatsRemaining() int {
	remaining := t.Capacity - t.SeatsBooked
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CentersResponse wraps a center listing with pagination info.
type CentersResponse struct {
	Centers    []DiveCenter   `json:"centers"`
	Pagination PaginationInfo `json:"pagination"`
}

// VesselsResponse wraps a vessel listing with pagination info.
type VesselsResponse struct {
	Vessels    []Vessel       `json:"vessels"`
	Pagination PaginationInfo `json:"pagination"`
}

// InstructorsResponse wraps an instructor listing with pagination info.
type InstructorsResponse struct {
	Instructors []Instructor   `json:"instructors"`
	Pagination  PaginationInfo `json:"pagination"`
}

// TripsResponse wraps a trip listing with pagination info.
type TripsResponse struct {
	Trips      []Trip         `json:"trips"`
	Pagination PaginationInfo `json:"pagination"`
}
