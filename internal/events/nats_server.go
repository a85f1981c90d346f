// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/pelagos-app/pelagos/internal/config"
)

// EmbeddedServer wraps an embedded NATS JetStream server so single-node
// deployments publish events without an external broker.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS server using
// the nats section of the config. Returns an error if the server is not
// ready within 30 seconds.
func NewEmbeddedServer(cfg *config.NATSConfig) (*EmbeddedServer, error) {
	maxMem, err := parseByteSize(cfg.MaxMemory)
	if err != nil {
		return nil, fmt.Errorf("invalid nats max_memory: %w", err)
	}
	maxStore, err := parseByteSize(cfg.MaxStore)
	if err != nil {
		return nil, fmt.Errorf("invalid nats max_store: %w", err)
	}

	opts := &server.Options{
		ServerName:         "pelagos-events",
		Host:               "127.0.0.1",
		Port:               -1, // random free port
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: maxMem,
		JetStreamMaxStore:  maxStore,
		DontListen:         false,
		NoLog:              false,
		MaxPayload:         1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	return &EmbeddedServer{
		server:    ns,
		clientURL: ns.ClientURL(),
	}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Shutdown gracefully stops the server.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.server.WaitForShutdown()
		return nil
	}
}

// IsRunning returns server health status.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// parseByteSize parses sizes like "1GB", "512MB", or plain byte counts.
func parseByteSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	multipliers := []struct {
		suffix string
		factor int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}

	for _, m := range multipliers {
		if len(s) > len(m.suffix) && s[len(s)-len(m.suffix):] == m.suffix {
			var n int64
			if _, err := fmt.Sscanf(s[:len(s)-len(m.suffix)], "%d", &n); err != nil {
				return 0, fmt.Errorf("parse size %q: %w", s, err)
			}
			return n * m.factor, nil
		}
	}

	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	return n, nil
}
