// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv removes config-relevant env vars so tests start from defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"CONFIG_PATH", "SERVER_PORT", "SERVER_HOST", "HTTP_PORT", "ENVIRONMENT",
		"AUTH_MODE", "JWT_SECRET", "ADMIN_USERNAME", "ADMIN_PASSWORD",
		"CORS_ORIGINS", "DUCKDB_PATH", "LOG_LEVEL",
		"BOOKING_HOLD_TTL", "PAYMENTS_WEBHOOK_SECRET", "SYNC_RETENTION",
		"NATS_ENABLED", "RATE_LIMIT_REQS",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "none")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8480, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.True(t, cfg.IsDevelopment())

	assert.Equal(t, 20, cfg.API.DefaultPageSize)
	assert.Equal(t, 100, cfg.API.MaxPageSize)

	assert.Equal(t, 15*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, time.Minute, cfg.Booking.SweepInterval)
	assert.Equal(t, 8, cfg.Booking.MaxSeatsPerBooking)

	assert.Equal(t, 30*24*time.Hour, cfg.Sync.Retention)
	assert.Equal(t, 500, cfg.Sync.MaxBatchSize)

	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BOOKING_HOLD_TTL", "5m")
	t.Setenv("SYNC_MAX_BATCH_SIZE", "250")
	t.Setenv("PAYMENTS_WEBHOOK_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, 250, cfg.Sync.MaxBatchSize)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Payments.WebhookSecret)
}

func TestLoadLegacyEnvAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("HTTP_PORT", "8888")
	t.Setenv("DUCKDB_PATH", ":memory:")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadCORSSliceFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Security.CORSOrigins)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "none")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 7001\nbooking:\n  max_seats_per_booking: 4\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Booking.MaxSeatsPerBooking)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "none")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7001\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SERVER_PORT", "7002")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7002, cfg.Server.Port)
}

func TestValidateServerPort(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.AuthMode = "none"
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
}

func TestValidateAuthModeInvalid(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.AuthMode = "saml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_MODE")
}

func TestValidateJWTSecretRequired(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.AuthMode = "jwt"
	cfg.Security.JWTSecret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateJWTSecretTooShort(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.AuthMode = "jwt"
	cfg.Security.JWTSecret = "tooshort"
	cfg.Security.AdminUsername = "admin"
	cfg.Security.AdminPassword = "CorrectHorseBatteryStaple9!"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestValidateJWTSecretPlaceholder(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.AuthMode = "jwt"
	cfg.Security.JWTSecret = "changeme-changeme-changeme-changeme"
	cfg.Security.AdminUsername = "admin"
	cfg.Security.AdminPassword = "CorrectHorseBatteryStaple9!"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder")
}

func TestValidateJWTAuthComplete(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.AuthMode = "jwt"
	cfg.Security.JWTSecret = "k9PzR2mWq7vTnX4bY8cJ6hL3dF5gS1aE"
	cfg.Security.AdminUsername = "admin"
	cfg.Security.AdminPassword = "CorrectHorseBatteryStaple9!"

	require.NoError(t, cfg.Validate())
}

func TestValidateAuthNoneRejectedInProduction(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Environment = "production"
	cfg.Security.AuthMode = "none"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_MODE=none is not allowed")
}

func TestValidateWildcardCORSRejectedInProduction(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Environment = "production"
	cfg.Security.AuthMode = "jwt"
	cfg.Security.JWTSecret = "k9PzR2mWq7vTnX4bY8cJ6hL3dF5gS1aE"
	cfg.Security.AdminUsername = "admin"
	cfg.Security.AdminPassword = "CorrectHorseBatteryStaple9!"
	cfg.Security.CORSOrigins = []string{"*"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORS_ORIGINS")
}

func TestValidateBookingBounds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.AuthMode = "none"
	cfg.Booking.HoldTTL = 10 * time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOOKING_HOLD_TTL")
}

func TestValidateSyncBounds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.AuthMode = "none"
	cfg.Sync.MaxBatchSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNC_MAX_BATCH_SIZE")
}

func TestValidateNATSRequiresStoreDir(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.AuthMode = "none"
	cfg.NATS.Enabled = true
	cfg.NATS.EmbeddedServer = true
	cfg.NATS.StoreDir = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATS_STORE_DIR")
}

func TestShouldWarnAboutCORS(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.AuthMode = "jwt"
	cfg.Security.CORSOrigins = []string{"*"}
	assert.True(t, cfg.ShouldWarnAboutCORS())

	cfg.Security.CORSOrigins = []string{"https://app.example.com"}
	assert.False(t, cfg.ShouldWarnAboutCORS())
}
