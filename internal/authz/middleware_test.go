// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos-app/pelagos/internal/auth"
	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/models"
)

func requestWithClaims(method, path, role string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	claims := &auth.Claims{Username: "tester", Role: role}
	ctx := context.WithValue(req.Context(), auth.ClaimsContextKey, claims)
	return req.WithContext(ctx)
}

func TestAuthorizeRequest(t *testing.T) {
	e, err := NewEnforcer(&config.CasbinConfig{DefaultRole: models.RoleDiver})
	require.NoError(t, err)
	defer e.Close()

	mw := NewMiddleware(e, true)
	handler := mw.AuthorizeRequest(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, requestWithClaims(http.MethodGet, "/api/v1/trips", models.RoleDiver))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler(rec, requestWithClaims(http.MethodPost, "/api/v1/trips", models.RoleDiver))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler(rec, requestWithClaims(http.MethodPost, "/api/v1/trips", models.RoleStaff))
	assert.Equal(t, http.StatusOK, rec.Code)

	// No claims in context.
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthorizeRequestDisabled(t *testing.T) {
	mw := NewMiddleware(nil, false)
	handler := mw.AuthorizeRequest(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/trips/abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
