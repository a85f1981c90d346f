// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/metrics"
)

// Bus is the in-process event bus. Every subscriber gets its own copy
// of each message (fan-out), and publishes never block the caller
// beyond the channel buffer.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the in-process bus.
func NewBus() *Bus {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            256,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		NewWatermillLogger(),
	)
	return &Bus{pubsub: pubsub}
}

// Publish serializes the event and publishes it to the topic derived
// from its type.
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("event_type", event.Type)
	msg.SetContext(ctx)

	topic := TopicFor(event.Type)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish event %s: %w", event.Type, err)
	}

	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// Subscribe returns a channel of messages for the topic. The channel
// closes when the context is cancelled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// DecodeEvent unmarshals an event from a bus message.
func DecodeEvent(msg *message.Message) (*Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}

// NewWatermillLogger adapts the global zerolog logger to Watermill's
// logging interface.
func NewWatermillLogger() watermill.LoggerAdapter {
	return &watermillLogger{}
}

type watermillLogger struct {
	fields watermill.LogFields
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(logError, msg, err, fields)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(logInfo, msg, nil, fields)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(logDebug, msg, nil, fields)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(logDebug, msg, nil, fields)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{fields: l.fields.Add(fields)}
}

type logLevel int

const (
	logDebug logLevel = iota
	logInfo
	logError
)

func (l *watermillLogger) event(level logLevel, msg string, err error, fields watermill.LogFields) {
	var ev *zerolog.Event
	switch level {
	case logError:
		ev = logging.Error()
	case logInfo:
		ev = logging.Info()
	default:
		ev = logging.Debug()
	}
	if err != nil {
		ev = ev.Err(err)
	}
	for k, v := range l.fields.Add(fields) {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
