/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/stationloop/internal/events"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Name          string
	Token         string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "stationloop",
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSBus is the NATS counterpart of RedisBus.
type NATSBus struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	local  *events.Bus
	logger zerolog.Logger
	nodeID string

	closeOnce sync.Once
}

// NewNATSBus connects to NATS, falling back to in-process delivery when the
// server cannot be reached.
func NewNATSBus(cfg NATSConfig, nodeID string, logger zerolog.Logger) *NATSBus {
	logger = logger.With().Str("component", "eventbus").Str("backend", "nats").Logger()
	if nodeID == "" {
		nodeID = NewNodeID()
	}
	nb := &NATSBus{local: events.NewBus(), logger: logger, nodeID: nodeID}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		logger.Warn().Err(err).Str("url", cfg.URL).Msg("NATS connection failed, using in-memory fallback")
		return nb
	}

	sub, err := nc.Subscribe(SubjectPrefix+">", func(m *nats.Msg) {
		if err := deliverRemote(nb.local, nb.nodeID, m.Data); err != nil {
			logger.Error().Err(err).Str("subject", m.Subject).Msg("failed to decode NATS event")
		}
	})
	if err != nil {
		logger.Warn().Err(err).Msg("NATS subscribe failed, using in-memory fallback")
		nc.Close()
		return nb
	}

	nb.nc = nc
	nb.sub = sub
	logger.Info().Str("url", cfg.URL).Str("node_id", nodeID).Msg("NATS event bus initialized")
	return nb
}

// Fallback reports whether the bus is running in-process only.
func (nb *NATSBus) Fallback() bool {
	return nb.nc == nil
}

func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	return nb.local.Subscribe(eventType)
}

func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	nb.local.Unsubscribe(eventType, sub)
}

// Publish delivers locally and forwards to NATS when connected.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	nb.local.Publish(eventType, payload)
	if nb.nc == nil {
		return
	}

	data, err := marshalMessage(eventType, payload, nb.nodeID)
	if err != nil {
		nb.logger.Error().Err(err).Msg("failed to marshal NATS message")
		return
	}
	if err := nb.nc.Publish(subject(eventType), data); err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish to NATS")
	}
}

// Close drains the connection and closes local subscribers.
func (nb *NATSBus) Close() error {
	var err error
	nb.closeOnce.Do(func() {
		if nb.nc != nil {
			err = nb.nc.Drain()
		}
		_ = nb.local.Close()
	})
	return err
}
