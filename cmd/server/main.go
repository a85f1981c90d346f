// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package main is the entry point for the Pelagos server.
//
// Pelagos is a dive-trip marketplace backend: dive centers publish
// vessels, instructors, and trips; divers book seats; a payment
// provider confirms bookings through signed webhooks; and mobile
// clients keep local copies fresh through a change-log delta sync.
//
// The server initializes components in order:
//
//  1. Configuration: koanf v2 with env vars, config file, and defaults
//  2. Database: DuckDB with the marketplace schema
//  3. Authentication: JWT (default), Basic, or none, plus Casbin RBAC
//  4. Event bus: in-process watermill pub/sub, optional NATS JetStream
//     forwarding for external consumers
//  5. Domain services: booking, payments, sync, notifications
//  6. Supervisor tree: suture-managed HTTP server and workers
//
// Graceful shutdown runs on SIGINT/SIGTERM: stop accepting connections,
// drain in-flight requests, stop the workers, close the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	_ "github.com/pelagos-app/pelagos/docs" // generated swagger spec
	"github.com/pelagos-app/pelagos/internal/api"
	"github.com/pelagos-app/pelagos/internal/auth"
	"github.com/pelagos-app/pelagos/internal/authz"
	"github.com/pelagos-app/pelagos/internal/booking"
	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/events"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/models"
	"github.com/pelagos-app/pelagos/internal/notify"
	"github.com/pelagos-app/pelagos/internal/payments"
	"github.com/pelagos-app/pelagos/internal/supervisor"
	"github.com/pelagos-app/pelagos/internal/supervisor/services"
	syncpkg "github.com/pelagos-app/pelagos/internal/sync"
	ws "github.com/pelagos-app/pelagos/internal/websocket"
)

//nolint:gocyclo // sequential startup wiring
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Pelagos")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	// Authentication managers per configured mode.
	var jwtManager *auth.JWTManager
	var basicAuthManager *auth.BasicAuthManager
	switch cfg.Security.AuthMode {
	case "jwt":
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		logging.Info().Msg("JWT authentication enabled")
	case "basic":
		basicAuthManager, err = auth.NewBasicAuthManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize Basic Auth manager")
		}
		logging.Info().Msg("Basic authentication enabled")
		logging.Warn().Msg("Basic Auth transmits credentials with each request. Use HTTPS in production!")
	case "none":
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none). Never use this outside development or isolated networks.")
	}

	tokenStore, err := auth.NewTokenStore(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize refresh token store")
	}
	defer func() {
		if err := tokenStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing token store")
		}
	}()

	enforcer, err := authz.NewEnforcer(&cfg.Security.Casbin)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization enforcer")
	}
	authzMiddleware := authz.NewMiddleware(enforcer, cfg.Security.AuthMode != "none")

	if err := bootstrapAdmin(db, &cfg.Security); err != nil {
		logging.Fatal().Err(err).Msg("Failed to bootstrap admin account")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// In-process event bus connecting booking/payment mutations to the
	// WebSocket hub, push dispatcher, and NATS forwarder.
	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	wsHub := ws.NewHub()

	bookingService := booking.NewService(db, bus, &cfg.Booking)
	sweeper := booking.NewSweeper(bookingService, cfg.Booking.SweepInterval)

	provider := payments.NewProviderClient(&cfg.Payments)
	processor := payments.NewProcessor(db, bookingService, bus).WithProvider(provider)
	if provider.Enabled() {
		logging.Info().Str("url", cfg.Payments.ProviderURL).Msg("Payment provider client enabled")
	} else {
		logging.Info().Msg("Payment provider client disabled, refunds require manual reconciliation")
	}

	syncManager := syncpkg.NewManager(db, &cfg.Sync)
	janitor := syncpkg.NewJanitor(db, &cfg.Sync)
	dispatcher := notify.NewDispatcher(bus, wsHub, db)

	handler := api.NewHandler(db, cfg, bookingService, processor, syncManager, jwtManager, tokenStore, bus, wsHub)

	middleware := auth.NewMiddleware(
		jwtManager,
		basicAuthManager,
		cfg.Security.AuthMode,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
		cfg.Security.CORSOrigins,
		cfg.Security.TrustedProxies,
		cfg.Security.DefaultRole,
		cfg.Security.AdminUsername,
	)

	router := api.NewRouter(handler, middleware, authzMiddleware, cfg.Security.RateLimitWindow)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddWorkerService(services.NewWorkerService("booking-sweeper", sweeper))
	tree.AddWorkerService(services.NewWorkerService("sync-janitor", janitor))

	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	tree.AddMessagingService(services.NewWorkerService("notify-dispatcher", dispatcher))

	if cfg.NATS.Enabled {
		if err := initNATS(ctx, cfg, bus, tree); err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize NATS forwarding")
		}
	} else {
		logging.Info().Msg("NATS forwarding disabled, events stay in-process")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// bootstrapAdmin ensures the configured admin account exists so a fresh
// deployment can log in. Existing accounts are left untouched.
func bootstrapAdmin(db *database.DB, sec *config.SecurityConfig) error {
	if sec.AdminUsername == "" || sec.AdminPassword == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.GetUser(ctx, sec.AdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(sec.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	err = db.InsertUser(ctx, &models.User{
		Username:     sec.AdminUsername,
		Email:        sec.AdminUsername + "@localhost",
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	})
	if errors.Is(err, database.ErrDuplicate) {
		return nil
	}
	if err == nil {
		logging.Info().Str("username", sec.AdminUsername).Msg("Admin account bootstrapped")
	}
	return err
}

// initNATS starts the optional JetStream forwarding path: an embedded
// broker (or external URL), the stream, and the supervised forwarder.
func initNATS(ctx context.Context, cfg *config.Config, bus *events.Bus, tree *supervisor.Tree) error {
	url := cfg.NATS.URL
	var broker *events.EmbeddedServer

	if cfg.NATS.EmbeddedServer {
		var err error
		broker, err = events.NewEmbeddedServer(&cfg.NATS)
		if err != nil {
			return fmt.Errorf("start embedded NATS server: %w", err)
		}
		url = broker.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	nc, err := nats.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	streams, err := events.NewStreamManager(nc, cfg.NATS.StreamRetentionDays)
	if err != nil {
		return fmt.Errorf("create stream manager: %w", err)
	}
	if _, err := streams.EnsureStream(ctx); err != nil {
		return fmt.Errorf("ensure event stream: %w", err)
	}
	nc.Close()

	forwarder, err := events.NewForwarder(bus, url, nil)
	if err != nil {
		return fmt.Errorf("create event forwarder: %w", err)
	}

	var brokerSvc services.EmbeddedBroker
	if broker != nil {
		brokerSvc = broker
	}
	tree.AddMessagingService(services.NewNATSForwarderService(forwarder, brokerSvc, 10*time.Second))
	logging.Info().Str("url", url).Msg("NATS event forwarding enabled")
	return nil
}
