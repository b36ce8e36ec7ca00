// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
)

// Broadcaster receives every envelope for live UI clients. Broadcast must
// not block; a slow client is the hub's problem, not the bus's.
type Broadcaster interface {
	Broadcast(data []byte)
}

// Bus is the in-process event fan-out: publishers on the vision and
// attendance side, a router delivering to the WebSocket hub and the audit
// log, and a Subscribe surface for the optional NATS mirror.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter
}

// NewBus creates the pub/sub channel and its delivery router.
func NewBus(cfg config.EventsConfig) (*Bus, error) {
	logger := newBusLogger()

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.BufferSize),
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create event router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)

	b := &Bus{
		pubsub: pubsub,
		router: router,
		logger: logger,
	}

	// Device commands get a durable audit line regardless of who else
	// is listening.
	router.AddConsumerHandler("device-audit", TopicDevice, pubsub, b.auditDeviceCommand)

	return b, nil
}

// AttachBroadcaster fans every topic out to the hub. Call before Run.
func (b *Bus) AttachBroadcaster(hub Broadcaster) {
	for _, topic := range []string{TopicDetections, TopicAttendance, TopicDevice} {
		b.router.AddConsumerHandler("ws-"+topic, topic, b.pubsub, func(msg *message.Message) error {
			hub.Broadcast(msg.Payload)
			return nil
		})
	}
}

// Subscribe opens a raw subscription on one topic. The NATS mirror uses
// this to republish envelopes beyond the process.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Run drives the router until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once the router has started all handlers. Tests and
// startup ordering wait on it before publishing.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close shuts the router, then the channel, dropping any undelivered
// messages.
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return fmt.Errorf("close event router: %w", err)
	}
	if err := b.pubsub.Close(); err != nil {
		return fmt.Errorf("close event channel: %w", err)
	}
	return nil
}

// PublishFrameSummary publishes one processed frame's presence snapshot.
func (b *Bus) PublishFrameSummary(s FrameSummary) {
	b.publish(TopicDetections, TypeFrameSummary, time.Now(), s)
}

// PublishAttendance publishes one attendance decision. Kind follows the
// engine's vocabulary (check_in, check_out, greeting, customer).
func (b *Bus) PublishAttendance(kind, name, status string, at time.Time) {
	eventType := TypeGreeting
	switch kind {
	case "check_in":
		eventType = TypeCheckIn
	case "check_out":
		eventType = TypeCheckOut
	case "customer":
		eventType = TypeCustomer
	}
	b.publish(TopicAttendance, eventType, at, AttendanceEvent{Kind: kind, Name: name, Status: status})
}

// PublishDeviceCommand publishes one dispatched actuator command with its
// send outcome.
func (b *Bus) PublishDeviceCommand(endpoint, class string, priority bool, sendErr error) {
	ev := DeviceCommandEvent{Endpoint: endpoint, Class: class, Priority: priority}
	if sendErr != nil {
		ev.Error = sendErr.Error()
	}
	b.publish(TopicDevice, TypeDeviceCommand, time.Now(), ev)
}

// publish wraps and sends. Delivery problems are counted and logged, never
// surfaced to the caller: the bus is observability, and a broken observer
// must not fail an attendance decision.
func (b *Bus) publish(topic, eventType string, at time.Time, payload any) {
	msg, err := NewMessage(eventType, at, payload)
	if err != nil {
		metrics.RecordEventDropped(eventType)
		logging.Error().Err(err).Str("type", eventType).Msg("Event payload not serializable")
		return
	}
	if err := b.pubsub.Publish(topic, msg); err != nil {
		metrics.RecordEventDropped(eventType)
		logging.Warn().Err(err).Str("type", eventType).Msg("Event not published")
		return
	}
	metrics.RecordEventPublished(eventType)
}

// auditDeviceCommand writes the device-command audit line.
func (b *Bus) auditDeviceCommand(msg *message.Message) error {
	env, err := ParseEnvelope(msg.Payload)
	if err != nil {
		return err
	}
	var ev DeviceCommandEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return fmt.Errorf("decode device command event: %w", err)
	}

	entry := logging.Info().
		Str("event_id", env.EventID).
		Str("endpoint", ev.Endpoint).
		Str("class", ev.Class).
		Bool("priority", ev.Priority)
	if ev.Error != "" {
		entry = entry.Str("error", ev.Error)
	}
	entry.Msg("Device command dispatched")
	return nil
}
