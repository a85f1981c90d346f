// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/models"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(&config.CasbinConfig{DefaultRole: models.RoleDiver})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestDefaultPolicyDiver(t *testing.T) {
	e := newTestEnforcer(t)

	cases := []struct {
		object  string
		action  string
		allowed bool
	}{
		{"/api/v1/trips", "read", true},
		{"/api/v1/trips/abc", "read", true},
		{"/api/v1/trips", "write", false},
		{"/api/v1/trips/abc", "delete", false},
		{"/api/v1/bookings", "write", true},
		{"/api/v1/bookings/abc", "read", true},
		{"/api/v1/bookings/abc/cancel", "write", true},
		{"/api/v1/bookings/abc/confirm", "write", false},
		{"/api/v1/payments", "read", false},
		{"/api/v1/sync/changes", "read", true},
		{"/api/v1/devices", "write", true},
	}

	for _, tc := range cases {
		allowed, err := e.Enforce(models.RoleDiver, tc.object, tc.action)
		require.NoError(t, err)
		assert.Equal(t, tc.allowed, allowed, "diver %s %s", tc.action, tc.object)
	}
}

func TestDefaultPolicyStaff(t *testing.T) {
	e := newTestEnforcer(t)

	// Staff write the catalog and inherit diver reads.
	allowed, err := e.Enforce(models.RoleStaff, "/api/v1/trips", "write")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = e.Enforce(models.RoleStaff, "/api/v1/trips", "read")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = e.Enforce(models.RoleStaff, "/api/v1/payments", "read")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = e.Enforce(models.RoleStaff, "/api/v1/bookings/abc/confirm", "write")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = e.Enforce(models.RoleStaff, "/api/v1/users/someone", "write")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDefaultPolicyAdmin(t *testing.T) {
	e := newTestEnforcer(t)

	for _, action := range []string{"read", "write", "delete"} {
		allowed, err := e.Enforce(models.RoleAdmin, "/api/v1/users/someone", action)
		require.NoError(t, err)
		assert.True(t, allowed, "admin %s", action)
	}
}

func TestEnforceRoleDefaultsWhenEmpty(t *testing.T) {
	e := newTestEnforcer(t)

	allowed, err := e.EnforceRole("", "/api/v1/trips", "read")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = e.EnforceRole("", "/api/v1/trips", "write")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRoleAssignment(t *testing.T) {
	e := newTestEnforcer(t)

	added, err := e.AddRoleForUser("marta", models.RoleStaff)
	require.NoError(t, err)
	assert.True(t, added)

	allowed, err := e.Enforce("marta", "/api/v1/trips", "write")
	require.NoError(t, err)
	assert.True(t, allowed)

	removed, err := e.DeleteRoleForUser("marta", models.RoleStaff)
	require.NoError(t, err)
	assert.True(t, removed)

	allowed, err = e.Enforce("marta", "/api/v1/trips", "write")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDecisionCaching(t *testing.T) {
	e := newTestEnforcer(t)

	// First call populates the cache, second call hits it.
	for i := 0; i < 2; i++ {
		allowed, err := e.Enforce(models.RoleDiver, "/api/v1/trips", "read")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}
