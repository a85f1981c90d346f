// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateBooking(); err != nil {
		return err
	}

	if err := c.validatePayments(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive")
	}
	return nil
}

// validateSecurity validates authentication and authorization configuration.
func (c *Config) validateSecurity() error {
	if err := c.validateAuthMode(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateRateLimits(); err != nil {
		return err
	}

	return c.validateAuthModeConfig()
}

// validAuthModes defines the allowed authentication modes.
var validAuthModes = map[string]bool{
	"none":  true,
	"jwt":   true,
	"basic": true,
}

func (c *Config) validateAuthMode() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt, basic")
	}

	// Refuse to start without authentication in production. This prevents
	// accidental deployment of insecure configurations.
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production. " +
			"Either set AUTH_MODE to jwt or basic, " +
			"or use ENVIRONMENT=development for testing purposes")
	}

	return nil
}

// validateAuthModeConfig validates configuration for the selected auth mode.
func (c *Config) validateAuthModeConfig() error {
	switch c.Security.AuthMode {
	case "jwt":
		return c.validateJWTAuth()
	case "basic":
		return c.validateAdminCredentials("basic")
	default:
		return nil // "none" has no additional validation
	}
}

func (c *Config) validateJWTAuth() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return c.validateAdminCredentials("jwt")
}

func (c *Config) validateAdminCredentials(authMode string) error {
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when AUTH_MODE is %s", authMode)
	}
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when AUTH_MODE is %s", authMode)
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return fmt.Errorf("ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	return nil
}

// validateCORS rejects wildcard CORS in production with authentication
// enabled. Wildcard CORS plus authentication lets any origin replay
// stolen credentials.
func (c *Config) validateCORS() error {
	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled. " +
			"Either set specific origins: CORS_ORIGINS=https://yourdomain.com,https://app.yourdomain.com " +
			"or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if the CORS configuration has security
// concerns that should be logged at startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// Rate limit bounds.
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateBooking() error {
	if c.Booking.HoldTTL < time.Minute {
		return fmt.Errorf("BOOKING_HOLD_TTL must be at least 1 minute")
	}
	if c.Booking.SweepInterval <= 0 {
		return fmt.Errorf("BOOKING_SWEEP_INTERVAL must be positive")
	}
	if c.Booking.MaxSeatsPerBooking < 1 {
		return fmt.Errorf("BOOKING_MAX_SEATS_PER_BOOKING must be at least 1")
	}
	return nil
}

func (c *Config) validatePayments() error {
	if c.Payments.WebhookSecret != "" && len(c.Payments.WebhookSecret) < 16 {
		return fmt.Errorf("PAYMENTS_WEBHOOK_SECRET must be at least 16 characters")
	}
	if c.Payments.ProviderURL != "" && c.Payments.ProviderTimeout <= 0 {
		return fmt.Errorf("PAYMENTS_PROVIDER_TIMEOUT must be positive when a provider is configured")
	}
	if c.Payments.RequestsPerSecond < 0 {
		return fmt.Errorf("PAYMENTS_REQUESTS_PER_SECOND must not be negative")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Retention < time.Hour {
		return fmt.Errorf("SYNC_RETENTION must be at least 1 hour")
	}
	if c.Sync.PruneInterval <= 0 {
		return fmt.Errorf("SYNC_PRUNE_INTERVAL must be positive")
	}
	if c.Sync.MaxBatchSize < 1 || c.Sync.MaxBatchSize > 10000 {
		return fmt.Errorf("SYNC_MAX_BATCH_SIZE must be between 1 and 10000")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.URL == "" && !c.NATS.EmbeddedServer {
		return fmt.Errorf("NATS_URL is required when NATS is enabled without an embedded server")
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when the embedded server is enabled")
	}
	if c.NATS.StreamRetentionDays < 1 {
		return fmt.Errorf("NATS_STREAM_RETENTION_DAYS must be at least 1")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	format := strings.ToLower(c.Logging.Format)
	if format != "json" && format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

// IsProduction reports whether the application runs in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment reports whether the application runs in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// placeholderValues are substrings that indicate a secret was left at an
// example value.
var placeholderValues = []string{
	"changeme",
	"change-me",
	"change_me",
	"placeholder",
	"example",
	"your-secret",
	"your_secret",
	"secret-here",
	"xxx",
}

func containsPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	for _, p := range placeholderValues {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
