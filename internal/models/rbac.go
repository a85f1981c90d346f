// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package models

import (
	"time"
)

// Role constants define the standard roles in the system.
// These align with the Casbin policy definitions in internal/authz.
const (
	// RoleDiver is the default role: browse the catalog, manage own
	// bookings, pull sync changes.
	RoleDiver = "diver"

	// RoleStaff manages catalog entities for a center and inherits
	// diver permissions.
	RoleStaff = "staff"

	// RoleAdmin has full access including user management and inherits
	// staff permissions.
	RoleAdmin = "admin"
)

// ValidRoles contains all valid role names for validation.
var ValidRoles = []string{RoleDiver, RoleStaff, RoleAdmin}

// IsValidRole checks if a role name is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User is an account that can authenticate against the API.
// PasswordHash is bcrypt and never serialized.
type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CertLevel    *string   `json:"cert_level,omitempty"` // diver certification, gates trip booking
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
