// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/metrics"
)

// Forwarder relays events from the in-process bus to NATS JetStream so
// external consumers (notification workers, analytics) can subscribe
// without coupling to the API process. Delivery is at-least-once;
// JetStream deduplicates on the event ID.
type Forwarder struct {
	bus       *Bus
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[interface{}]
	topics    []string

	mu     sync.Mutex
	closed bool
}

// NewForwarder connects a Watermill NATS publisher to the given URL and
// wraps it with a circuit breaker.
func NewForwarder(bus *Bus, url string, logger watermill.LoggerAdapter) (*Forwarder, error) {
	if logger == nil {
		logger = NewWatermillLogger()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // stream is created by StreamManager
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "nats-forwarder",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String(), float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	return &Forwarder{
		bus:       bus,
		publisher: pub,
		breaker:   breaker,
		topics:    []string{TopicBookings, TopicPayments, TopicTrips},
	}, nil
}

// Serve subscribes to all bus topics and forwards messages until the
// context is cancelled. Designed for suture supervision.
func (f *Forwarder) Serve(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, topic := range f.topics {
		messages, err := f.bus.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}

		wg.Add(1)
		go func(topic string, messages <-chan *message.Message) {
			defer wg.Done()
			f.forwardTopic(topic, messages)
		}(topic, messages)
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// forwardTopic drains one bus subscription into NATS. Failed publishes
// are dropped after the publisher's retries; the sync change log is the
// durable record, so external consumers can always reconcile.
func (f *Forwarder) forwardTopic(topic string, messages <-chan *message.Message) {
	subject := StreamSubjectPrefix + topic
	for msg := range messages {
		if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
			msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
		}

		_, err := f.breaker.Execute(func() (interface{}, error) {
			return nil, f.publisher.Publish(subject, msg)
		})
		if err != nil {
			logging.Error().Err(err).
				Str("topic", topic).
				Str("event_id", msg.UUID).
				Msg("failed to forward event to NATS")
			msg.Ack()
			continue
		}

		metrics.EventsForwarded.Inc()
		msg.Ack()
	}
}

// Close shuts down the NATS publisher.
func (f *Forwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.publisher.Close()
}
