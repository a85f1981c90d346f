// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamName is the JetStream stream holding forwarded Pelagos events.
const StreamName = "PELAGOS_EVENTS"

// StreamSubjectPrefix is the subject hierarchy for forwarded events:
// pelagos.bookings.events, pelagos.payments.events, pelagos.trips.events.
const StreamSubjectPrefix = "pelagos."

// StreamManager provisions the JetStream stream for forwarded events.
type StreamManager struct {
	js           jetstream.JetStream
	retentionAge time.Duration
}

// NewStreamManager creates a stream manager on an open NATS connection.
func NewStreamManager(nc *nats.Conn, retentionDays int) (*StreamManager, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	if retentionDays < 1 {
		retentionDays = 7
	}
	return &StreamManager{
		js:           js,
		retentionAge: time.Duration(retentionDays) * 24 * time.Hour,
	}, nil
}

// EnsureStream creates or updates the Pelagos event stream.
func (m *StreamManager) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{StreamSubjectPrefix + ">"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      m.retentionAge,
		Duplicates:  2 * time.Minute,
		Storage:     jetstream.FileStorage,
		AllowDirect: true,
		Discard:     jetstream.DiscardOld,
	}

	if _, err := m.js.Stream(ctx, StreamName); err == nil {
		stream, err := m.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream: %w", err)
		}
		return stream, nil
	}

	stream, err := m.js.CreateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}
	return stream, nil
}

// GetStreamInfo returns current stream state for health reporting.
func (m *StreamManager) GetStreamInfo(ctx context.Context) (*jetstream.StreamInfo, error) {
	stream, err := m.js.Stream(ctx, StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	return stream.Info(ctx)
}
