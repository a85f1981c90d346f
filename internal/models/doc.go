// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package models defines the data structures used throughout Pelagos.
// These models represent the dive catalog (centers, vessels, instructors,
// trips), bookings and payments, users and roles, mobile sync change
// records, and the API response envelope.
package models
