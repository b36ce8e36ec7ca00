// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

//go:build nats

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
)

// Mirror republishes every bus envelope to NATS JetStream, giving external
// consumers (dashboards, archival) the same stream the WebSocket clients
// see. Available in binaries built with -tags=nats.
type Mirror struct {
	cfg      config.NATSConfig
	bus      *Bus
	embedded *server.Server
	conn     *natsgo.Conn
	pub      message.Publisher
}

// NewMirror connects to NATS (starting an embedded JetStream server when
// configured), ensures the stream exists, and returns the mirror. Returns
// (nil, nil) when mirroring is disabled.
func NewMirror(cfg config.NATSConfig, bus *Bus) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	m := &Mirror{cfg: cfg, bus: bus}

	url := cfg.URL
	if cfg.EmbeddedServer {
		ns, err := startEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		m.embedded = ns
		url = ns.ClientURL()
	}

	if err := m.connect(url); err != nil {
		m.shutdownEmbedded()
		return nil, err
	}

	logging.Info().
		Str("url", url).
		Str("stream", cfg.Stream).
		Bool("embedded", cfg.EmbeddedServer).
		Msg("NATS mirroring enabled")
	return m, nil
}

func (m *Mirror) connect(url string) error {
	nc, err := natsgo.Connect(url,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	m.conn = nc

	if err := m.ensureStream(); err != nil {
		nc.Close()
		return err
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:       url,
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, newBusLogger())
	if err != nil {
		nc.Close()
		return fmt.Errorf("create NATS publisher: %w", err)
	}
	m.pub = pub
	return nil
}

// ensureStream creates or updates the JetStream stream carrying the
// mirrored subjects. Idempotent across restarts.
func (m *Mirror) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	js, err := jetstream.New(m.conn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := jetstream.StreamConfig{
		Name:      m.cfg.Stream,
		Subjects:  []string{m.cfg.SubjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		MaxBytes:  m.cfg.MaxStore,
		Storage:   jetstream.FileStorage,
		Discard:   jetstream.DiscardOld,
	}

	if _, err := js.Stream(ctx, m.cfg.Stream); err == nil {
		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream %s: %w", m.cfg.Stream, err)
		}
		return nil
	} else if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("check stream %s: %w", m.cfg.Stream, err)
	}

	if _, err := js.CreateStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("create stream %s: %w", m.cfg.Stream, err)
	}
	return nil
}

// Run subscribes to every bus topic and republishes until ctx is
// cancelled.
func (m *Mirror) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, topic := range []string{TopicDetections, TopicAttendance, TopicDevice} {
		msgs, err := m.bus.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		wg.Add(1)
		go func(topic string, msgs <-chan *message.Message) {
			defer wg.Done()
			m.forward(topic, msgs)
		}(topic, msgs)
	}
	wg.Wait()
	return nil
}

// forward drains one topic subscription into NATS. The subscription
// channel closes when the bus's context ends.
func (m *Mirror) forward(topic string, msgs <-chan *message.Message) {
	subject := m.cfg.SubjectPrefix + "." + topic
	for msg := range msgs {
		if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
			msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
		}
		if err := m.pub.Publish(subject, msg); err != nil {
			metrics.NATSPublishErrors.Inc()
			logging.Warn().
				Err(err).
				Str("subject", subject).
				Msg("Event not mirrored to NATS")
		} else {
			metrics.NATSMessagesPublished.Inc()
		}
		// Mirroring is best effort; never hold up the bus on NATS.
		msg.Ack()
	}
}

// Close releases the publisher, the connection, and the embedded server.
func (m *Mirror) Close() error {
	var errs []error
	if m.pub != nil {
		if err := m.pub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close NATS publisher: %w", err))
		}
	}
	if m.conn != nil {
		m.conn.Close()
	}
	m.shutdownEmbedded()
	return errors.Join(errs...)
}

func (m *Mirror) shutdownEmbedded() {
	if m.embedded == nil {
		return
	}
	m.embedded.Shutdown()
	m.embedded.WaitForShutdown()
}

// startEmbeddedServer boots an in-process JetStream server on a random
// loopback port.
func startEmbeddedServer(cfg config.NATSConfig) (*server.Server, error) {
	opts := &server.Options{
		ServerName:         "custos-events",
		Host:               "127.0.0.1",
		Port:               -1,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.MaxMemory,
		JetStreamMaxStore:  cfg.MaxStore,
		MaxPayload:         1 << 20,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.ConfigureLogger()

	go ns.Start()
	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("NATS server not ready within timeout")
	}
	return ns, nil
}
