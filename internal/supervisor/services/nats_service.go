// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package services

import (
	"context"
	"time"
)

// EventForwarder matches *events.Forwarder: a Serve loop plus an
// explicit Close for the underlying NATS publisher.
type EventForwarder interface {
	Serve(ctx context.Context) error
	Close() error
}

// EmbeddedBroker matches *events.EmbeddedServer's shutdown surface.
type EmbeddedBroker interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// NATSForwarderService runs the event forwarder under supervision and
// owns the embedded broker's shutdown. The broker itself starts before
// the tree (the forwarder needs a reachable URL) but is torn down here
// so a supervisor restart of the forwarder does not leak it.
type NATSForwarderService struct {
	forwarder       EventForwarder
	broker          EmbeddedBroker // nil when connecting to an external server
	shutdownTimeout time.Duration
	name            string
}

// NewNATSForwarderService creates the forwarder service. broker may be
// nil when an external NATS server is configured.
func NewNATSForwarderService(forwarder EventForwarder, broker EmbeddedBroker, shutdownTimeout time.Duration) *NATSForwarderService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSForwarderService{
		forwarder:       forwarder,
		broker:          broker,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-forwarder",
	}
}

// Serve implements suture.Service.
func (s *NATSForwarderService) Serve(ctx context.Context) error {
	err := s.forwarder.Serve(ctx)

	if ctx.Err() != nil {
		// Final shutdown, not a restart: close the publisher and stop
		// the embedded broker.
		_ = s.forwarder.Close()
		if s.broker != nil && s.broker.IsRunning() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			_ = s.broker.Shutdown(shutdownCtx)
		}
	}
	return err
}

// String identifies the service in supervisor log messages.
func (s *NATSForwarderService) String() string {
	return s.name
}
