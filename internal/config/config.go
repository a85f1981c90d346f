// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package config

import (
	"time"
)

// Config holds all application configuration loaded from environment variables
// and an optional YAML config file.
//
// Loading order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config file: optional YAML file (config.yaml) for persistent settings
//  3. Environment variables: override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Booking  BookingConfig  `koanf:"booking"`
	Payments PaymentsConfig `koanf:"payments"`
	Sync     SyncConfig     `koanf:"sync"`
	NATS     NATSConfig     `koanf:"nats"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging", "production"
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path                   string `koanf:"path"` // empty or ":memory:" for in-memory
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"` // 0 = use NumCPU
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
	SeedDemoData           bool   `koanf:"seed_demo_data"` // seed a small demo catalog on startup
}

// APIConfig holds pagination and response settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds authentication and authorization settings.
//
// AuthMode selects the authentication scheme:
//   - "jwt": JWT bearer tokens issued by /api/v1/auth/login (default)
//   - "basic": HTTP Basic Auth against the configured admin credentials
//   - "none": no authentication (development only)
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`

	// DefaultRole is assigned to newly registered users.
	DefaultRole string `koanf:"default_role"`

	// Refresh token store (BadgerDB). "memory" keeps tokens in an
	// in-process Badger instance, "badger" persists them to TokenStorePath.
	TokenStore     string `koanf:"token_store"`
	TokenStorePath string `koanf:"token_store_path"`
	RefreshTTL     time.Duration `koanf:"refresh_ttl"`

	Casbin CasbinConfig `koanf:"casbin"`
}

// CasbinConfig holds RBAC authorization settings. When ModelPath or
// PolicyPath are empty the embedded defaults are used.
type CasbinConfig struct {
	ModelPath   string `koanf:"model_path"`
	PolicyPath  string `koanf:"policy_path"`
	DefaultRole string `koanf:"default_role"`
}

// BookingConfig holds seat-hold and booking lifecycle settings.
type BookingConfig struct {
	// HoldTTL is how long a pending booking holds its seats before the
	// sweeper expires it and releases the seats.
	HoldTTL time.Duration `koanf:"hold_ttl"`

	// SweepInterval is how often the expiry sweeper runs.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// MaxSeatsPerBooking caps the number of seats a single booking may hold.
	MaxSeatsPerBooking int `koanf:"max_seats_per_booking"`
}

// PaymentsConfig holds payment provider and webhook settings.
type PaymentsConfig struct {
	// WebhookSecret is the shared HMAC-SHA256 key used to verify
	// X-Pelagos-Signature on incoming provider webhooks.
	WebhookSecret string `koanf:"webhook_secret"`

	// ProviderURL is the payment provider API base URL. Empty disables
	// outbound provider calls (webhook-only mode).
	ProviderURL     string        `koanf:"provider_url"`
	ProviderAPIKey  string        `koanf:"provider_api_key"`
	ProviderTimeout time.Duration `koanf:"provider_timeout"`

	// RequestsPerSecond rate-limits outbound provider calls. 0 = unlimited.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// Circuit breaker settings for the provider client.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// SyncConfig holds mobile delta-sync settings.
type SyncConfig struct {
	// Retention is how long change log entries are kept before the
	// janitor prunes them. Clients holding cursors older than this
	// receive 410 Gone and must perform a full resync.
	Retention time.Duration `koanf:"retention"`

	// PruneInterval is how often the janitor runs.
	PruneInterval time.Duration `koanf:"prune_interval"`

	// MaxBatchSize caps the number of changes returned per sync request.
	MaxBatchSize int `koanf:"max_batch_size"`
}

// NATSConfig holds optional NATS JetStream event forwarding settings.
// When disabled, events flow only through the in-process bus.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      string `koanf:"max_memory"`
	MaxStore       string `koanf:"max_store"`

	// StreamRetentionDays is how long forwarded events are kept.
	StreamRetentionDays int `koanf:"stream_retention_days"`
}

// LoggingConfig holds zerolog settings.
//
// Environment variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads configuration from defaults, optional config file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
