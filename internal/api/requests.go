// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package api

import (
	"time"

	"github.com/google/uuid"
)

// CenterRequest creates or updates a dive center.
type CenterRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=4000"`
	Email       string   `json:"email" validate:"required,email"`
	Phone       *string  `json:"phone,omitempty" validate:"omitempty,max=32"`
	Country     string   `json:"country" validate:"required,len=2,uppercase"`
	Region      *string  `json:"region,omitempty" validate:"omitempty,max=200"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

// VesselRequest creates or updates a vessel.
type VesselRequest struct {
	CenterID uuid.UUID `json:"center_id" validate:"required"`
	Name     string    `json:"name" validate:"required,min=1,max=200"`
	Capacity int       `json:"capacity" validate:"required,gt=0,lte=500"`
}

// InstructorRequest creates or updates an instructor.
type InstructorRequest struct {
	CenterID  uuid.UUID `json:"center_id" validate:"required"`
	Name      string    `json:"name" validate:"required,min=1,max=200"`
	Agency    string    `json:"agency" validate:"required,max=64"`
	CertLevel string    `json:"cert_level" validate:"required,certlevel"`
	Bio       *string   `json:"bio,omitempty" validate:"omitempty,max=4000"`
}

// TripRequest creates or updates a trip.
type TripRequest struct {
	CenterID     uuid.UUID `json:"center_id" validate:"required"`
	VesselID     uuid.UUID `json:"vessel_id" validate:"required"`
	InstructorID uuid.UUID `json:"instructor_id" validate:"required"`
	Title        string    `json:"title" validate:"required,min=1,max=300"`
	Description  *string   `json:"description,omitempty" validate:"omitempty,max=4000"`
	SiteName     string    `json:"site_name" validate:"required,min=1,max=300"`
	DepartsAt    time.Time `json:"departs_at" validate:"required"`
	ReturnsAt    time.Time `json:"returns_at" validate:"required,gtfield=DepartsAt"`
	Capacity     int       `json:"capacity" validate:"required,gt=0,lte=500"`
	MinCertLevel string    `json:"min_cert_level" validate:"omitempty,certlevel"`
	Price        string    `json:"price" validate:"required"`
	Currency     string    `json:"currency" validate:"required,len=3,uppercase"`
	MaxDepthM    *int      `json:"max_depth_m,omitempty" validate:"omitempty,gt=0,lte=350"`
}

// BookingRequest creates a booking for the authenticated diver.
type BookingRequest struct {
	TripID uuid.UUID `json:"trip_id" validate:"required"`
	Seats  int       `json:"seats" validate:"required,gt=0"`
}

// AckCursorRequest records a device's applied sync position.
type AckCursorRequest struct {
	DeviceID string `json:"device_id" validate:"required,max=128"`
	Cursor   string `json:"cursor" validate:"required"`
}

// CertLevelRequest updates a user's recorded certification level.
type CertLevelRequest struct {
	CertLevel string `json:"cert_level" validate:"required,certlevel"`
}
