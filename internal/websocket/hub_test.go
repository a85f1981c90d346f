// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos-app/pelagos/internal/models"
)

func newTestClient() *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		send: make(chan Message, 16),
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("hub did not stop")
		}
	})
	return hub, cancel
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.GetClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, have %d", want, hub.GetClientCount())
}

func TestHubRegisterUnregister(t *testing.T) {
	hub, _ := startHub(t)

	client := newTestClient()
	hub.Register <- client
	waitForClients(t, hub, 1)

	hub.Unregister <- client
	waitForClients(t, hub, 0)

	// The hub closes the send channel on unregister.
	_, open := <-client.send
	assert.False(t, open)
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub, _ := startHub(t)

	a := newTestClient()
	b := newTestClient()
	hub.Register <- a
	hub.Register <- b
	waitForClients(t, hub, 2)

	booking := &models.Booking{
		Status: models.BookingConfirmed,
		Amount: decimal.RequireFromString("189.50"),
	}
	hub.BroadcastBookingUpdate(booking)

	for _, client := range []*Client{a, b} {
		select {
		case msg := <-client.send:
			assert.Equal(t, MessageTypeBookingUpdate, msg.Type)
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHubSyncHint(t *testing.T) {
	hub, _ := startHub(t)

	client := newTestClient()
	hub.Register <- client
	waitForClients(t, hub, 1)

	hub.BroadcastSyncHint(42)

	select {
	case msg := <-client.send:
		require.Equal(t, MessageTypeSyncHint, msg.Type)
		hint, ok := msg.Data.(SyncHint)
		require.True(t, ok)
		assert.Equal(t, int64(42), hint.Seq)
	case <-time.After(time.Second):
		t.Fatal("client did not receive sync hint")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, cancel := startHub(t)

	client := newTestClient()
	hub.Register <- client
	waitForClients(t, hub, 1)

	cancel()

	select {
	case _, open := <-client.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("client send channel was not closed")
	}
}

func TestHubDropsSaturatedClient(t *testing.T) {
	hub, _ := startHub(t)

	client := &Client{
		id:   clientIDCounter.Add(1),
		send: make(chan Message), // unbuffered, never read
	}
	hub.Register <- client
	waitForClients(t, hub, 1)

	hub.BroadcastSyncHint(1)
	waitForClients(t, hub, 0)
}
