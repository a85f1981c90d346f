// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos-app/pelagos/internal/metrics"
	"github.com/pelagos-app/pelagos/internal/models"
)

func newJWTMiddleware(t *testing.T) (*Middleware, *JWTManager) {
	t.Helper()
	m, err := NewJWTManager(testSecurityConfig())
	require.NoError(t, err)
	mw := NewMiddleware(m, nil, "jwt", 100, time.Minute, true, nil, nil, "", "")
	return mw, m
}

func TestAuthenticateMissingToken(t *testing.T) {
	mw, _ := newJWTMiddleware(t)

	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateValidBearerToken(t *testing.T) {
	mw, m := newJWTMiddleware(t)

	token, _, err := m.GenerateToken("staff1", models.RoleStaff)
	require.NoError(t, err)

	var gotClaims *Claims
	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "staff1", gotClaims.Username)
	assert.Equal(t, models.RoleStaff, gotClaims.Role)
}

func TestAuthenticateTokenFromCookie(t *testing.T) {
	mw, m := newJWTMiddleware(t)

	token, _, err := m.GenerateToken("diver1", models.RoleDiver)
	require.NoError(t, err)

	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthModeNoneBypasses(t *testing.T) {
	mw := NewMiddleware(nil, nil, "none", 100, time.Minute, true, nil, nil, "", "")

	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleForbidsLesserRole(t *testing.T) {
	mw, m := newJWTMiddleware(t)

	token, _, err := m.GenerateToken("diver1", models.RoleDiver)
	require.NoError(t, err)

	handler := mw.RequireRole(models.RoleStaff, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/trips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleAdminPassesAllChecks(t *testing.T) {
	mw, m := newJWTMiddleware(t)

	token, _, err := m.GenerateToken("admin1", models.RoleAdmin)
	require.NoError(t, err)

	handler := mw.RequireRole(models.RoleStaff, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/trips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuthFlow(t *testing.T) {
	bam, err := NewBasicAuthManager("captain", "correct-horse-battery")
	require.NoError(t, err)
	mw := NewMiddleware(nil, bam, "basic", 100, time.Minute, true, nil, nil, models.RoleDiver, "captain")

	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		// The configured admin username is promoted to admin.
		assert.Equal(t, models.RoleAdmin, claims.Role)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
	creds := base64.StdEncoding.EncodeToString([]byte("captain:correct-horse-battery"))
	req.Header.Set("Authorization", "Basic "+creds)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuthChallenge(t *testing.T) {
	bam, err := NewBasicAuthManager("captain", "correct-horse-battery")
	require.NoError(t, err)
	mw := NewMiddleware(nil, bam, "basic", 100, time.Minute, true, nil, nil, "", "")

	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
}

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	mw := NewMiddleware(nil, nil, "none", 2, time.Minute, false, nil, nil, "", "")

	handler := mw.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	before := testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("/api/v1/trips"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("/api/v1/trips")))

	// A different client is unaffected.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	handler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
