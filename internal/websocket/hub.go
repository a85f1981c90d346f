// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package websocket pushes live marketplace updates to connected
// clients: trip changes, booking state transitions, and payment
// outcomes. Mobile apps use these as a hint to pull the sync feed
// rather than as the source of truth.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/metrics"
	"github.com/pelagos-app/pelagos/internal/models"
)

// Message types for WebSocket communication.
const (
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeTripUpdate    = "trip_update"
	MessageTypeBookingUpdate = "booking_update"
	MessageTypePaymentUpdate = "payment_update"
	MessageTypeSyncHint      = "sync_hint"
)

// Message represents a WebSocket message.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SyncHint tells clients new changes are available from the given
// sequence number.
type SyncHint struct {
	Seq int64 `json:"seq"`
}

// Hub maintains the set of active clients and broadcasts messages to
// them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub until the context is cancelled, then
// closes all clients and returns ctx.Err(). Designed for suture
// supervision.
//
// Channel selection is prioritized: shutdown first, then client
// lifecycle events, then broadcasts. Go's select picks randomly among
// ready channels, so without the priority passes client registration
// could race message delivery.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("websocket client disconnected")
}

func (h *Hub) shutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", reason).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// broadcastToClients sends a message to all connected clients in client
// ID order. Stable ordering keeps delivery reproducible in tests and
// under race detection. Clients with a full send buffer are dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}

	metrics.WebSocketBroadcasts.Inc()
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WebSocketConnections.Set(0)
}

// BroadcastTripUpdate notifies clients that a trip changed.
func (h *Hub) BroadcastTripUpdate(trip *models.Trip) {
	h.enqueue(Message{Type: MessageTypeTripUpdate, Data: trip})
}

// BroadcastBookingUpdate notifies clients that a booking changed state.
func (h *Hub) BroadcastBookingUpdate(booking *models.Booking) {
	h.enqueue(Message{Type: MessageTypeBookingUpdate, Data: booking})
}

// BroadcastPaymentUpdate notifies clients of a processed payment.
func (h *Hub) BroadcastPaymentUpdate(payment *models.Payment) {
	h.enqueue(Message{Type: MessageTypePaymentUpdate, Data: payment})
}

// BroadcastSyncHint tells clients the change log advanced to seq.
func (h *Hub) BroadcastSyncHint(seq int64) {
	h.enqueue(Message{Type: MessageTypeSyncHint, Data: SyncHint{Seq: seq}})
}

// enqueue queues a broadcast, dropping it when the hub is saturated.
// Dropped hints are harmless since clients reconcile through the sync
// feed.
func (h *Hub) enqueue(message Message) {
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("type", message.Type).Msg("websocket broadcast queue full, dropping message")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
