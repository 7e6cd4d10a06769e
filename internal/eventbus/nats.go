/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus to NATS so external
// consumers (lighting rigs, analytics, dashboards) can follow a set live.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_dj/internal/events"
)

// Config contains NATS connection configuration.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns default NATS configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "huginn",
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// message is the wire format published to NATS subjects.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"` // For deduplication
}

// Bridge republishes every bus event to "<prefix>.events.<type>".
type Bridge struct {
	conn   *nats.Conn
	bus    *events.Bus
	sub    chan events.Envelope
	logger zerolog.Logger
	cfg    Config
	nodeID string
	done   chan struct{}
}

// New connects to NATS and starts forwarding bus events.
func New(cfg Config, bus *events.Bus, logger zerolog.Logger) (*Bridge, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("huginn-dj"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	host, _ := os.Hostname()
	b := &Bridge{
		conn:   conn,
		bus:    bus,
		sub:    bus.SubscribeAll(),
		logger: logger.With().Str("component", "eventbus").Logger(),
		cfg:    cfg,
		nodeID: fmt.Sprintf("%s-%s", host, uuid.NewString()[:8]),
		done:   make(chan struct{}),
	}

	go b.run()

	b.logger.Info().Str("url", cfg.URL).Str("prefix", cfg.SubjectPrefix).Msg("NATS event bridge started")
	return b, nil
}

func (b *Bridge) run() {
	for {
		select {
		case <-b.done:
			return
		case env, ok := <-b.sub:
			if !ok {
				return
			}
			b.forward(env)
		}
	}
}

func (b *Bridge) forward(env events.Envelope) {
	subject := SubjectFor(b.cfg.SubjectPrefix, env.Type)

	data, err := json.Marshal(message{
		EventType: env.Type,
		Payload:   env.Payload,
		Timestamp: time.Now().UTC(),
		NodeID:    b.nodeID,
		MessageID: uuid.NewString(),
	})
	if err != nil {
		b.logger.Error().Err(err).Str("subject", subject).Msg("failed to marshal event")
		return
	}

	if err := b.conn.Publish(subject, data); err != nil {
		b.logger.Error().Err(err).Str("subject", subject).Msg("failed to publish event")
		return
	}

	b.logger.Debug().Str("subject", subject).Msg("forwarded event to NATS")
}

// SubjectFor returns the NATS subject for an event type.
func SubjectFor(prefix string, eventType events.EventType) string {
	return fmt.Sprintf("%s.events.%s", prefix, eventType)
}

// Close stops forwarding and drains the NATS connection.
func (b *Bridge) Close() error {
	close(b.done)
	b.bus.UnsubscribeAll(b.sub)

	if b.conn == nil {
		return nil
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}
