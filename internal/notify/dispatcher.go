// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package notify fans domain events out to connected clients.
//
// The dispatcher subscribes to the in-process event bus and drives two
// delivery paths: websocket broadcasts for live clients, and push
// notification dispatch for registered mobile devices. Push delivery
// goes through the device registry; devices whose cursor already covers
// the event's sequence are skipped.
package notify

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/events"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/models"
	"github.com/pelagos-app/pelagos/internal/websocket"
)

// Dispatcher routes bus events to websocket clients and mobile devices.
type Dispatcher struct {
	bus *events.Bus
	hub *websocket.Hub
	db  *database.DB
}

// NewDispatcher creates a dispatcher. hub and db may each be nil to
// disable that delivery path.
func NewDispatcher(bus *events.Bus, hub *websocket.Hub, db *database.DB) *Dispatcher {
	return &Dispatcher{bus: bus, hub: hub, db: db}
}

// Serve consumes all event topics until the context is cancelled. It
// satisfies suture.Service.
func (d *Dispatcher) Serve(ctx context.Context) error {
	topics := []string{events.TopicBookings, events.TopicPayments, events.TopicTrips}

	var wg sync.WaitGroup
	for _, topic := range topics {
		messages, err := d.bus.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func(topic string, messages <-chan *message.Message) {
			defer wg.Done()
			d.consume(ctx, topic, messages)
		}(topic, messages)
	}

	logging.Info().
		Str("component", "notify_dispatcher").
		Int("topics", len(topics)).
		Msg("notify dispatcher started")

	wg.Wait()
	return ctx.Err()
}

func (d *Dispatcher) consume(ctx context.Context, topic string, messages <-chan *message.Message) {
	for msg := range messages {
		event, err := events.DecodeEvent(msg)
		if err != nil {
			logging.Error().Err(err).
				Str("topic", topic).
				Str("message_id", msg.UUID).
				Msg("failed to decode event")
			msg.Ack()
			continue
		}
		d.dispatch(ctx, event)
		msg.Ack()
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, event *events.Event) {
	d.broadcast(event)
	if event.Seq > 0 && d.hub != nil {
		d.hub.BroadcastSyncHint(event.Seq)
	}
	d.push(ctx, event)
}

// broadcast mirrors the event to websocket clients as a typed update.
func (d *Dispatcher) broadcast(event *events.Event) {
	if d.hub == nil {
		return
	}
	switch event.EntityType {
	case models.EntityBooking:
		var b models.Booking
		if err := json.Unmarshal(event.Data, &b); err == nil {
			d.hub.BroadcastBookingUpdate(&b)
		}
	case models.EntityPayment:
		var p models.Payment
		if err := json.Unmarshal(event.Data, &p); err == nil {
			d.hub.BroadcastPaymentUpdate(&p)
		}
	case models.EntityTrip:
		var tr models.Trip
		if err := json.Unmarshal(event.Data, &tr); err == nil {
			d.hub.BroadcastTripUpdate(&tr)
		}
	}
}

// push notifies the event owner's registered devices. Delivery is a
// structured log line handed to the platform push pipeline; devices
// already past the event's sequence are skipped.
func (d *Dispatcher) push(ctx context.Context, event *events.Event) {
	if d.db == nil || event.Username == "" {
		return
	}
	devices, err := d.db.ListDevicesForUser(ctx, event.Username)
	if err != nil {
		logging.Error().Err(err).
			Str("username", event.Username).
			Msg("failed to list devices for push")
		return
	}

	for _, device := range devices {
		if device.PushToken == nil {
			continue
		}
		if event.Seq > 0 && device.LastSeq >= event.Seq {
			continue
		}
		logging.Info().
			Str("device_id", device.ID).
			Str("platform", device.Platform).
			Str("username", event.Username).
			Str("event_type", event.Type).
			Str("entity_id", event.EntityID).
			Msg("push notification dispatched")
	}
}
