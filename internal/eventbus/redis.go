/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/stationloop/internal/events"
)

// RedisBus delivers locally through an in-process bus and mirrors every
// event over Redis pub/sub. Remote events are fed into the local bus, so
// subscribers see both.
type RedisBus struct {
	client *redis.Client
	pubsub *redis.PubSub
	local  *events.Bus
	logger zerolog.Logger
	nodeID string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Circuit breaker state
	mu          sync.Mutex
	useFallback bool
	failCount   int
	maxFails    int
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxFailures consecutive publish errors switch the bus to local only.
	MaxFailures int
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxFailures:  5,
	}
}

// NewRedisBus connects to Redis. When Redis is unreachable the bus still
// works, in-process only.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) *RedisBus {
	logger = logger.With().Str("component", "eventbus").Str("backend", "redis").Logger()
	if nodeID == "" {
		nodeID = NewNodeID()
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}

	ctx, cancel := context.WithCancel(context.Background())
	rb := &RedisBus{
		local:    events.NewBus(),
		logger:   logger,
		nodeID:   nodeID,
		ctx:      ctx,
		cancel:   cancel,
		maxFails: cfg.MaxFailures,
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.DialTimeout+time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis connection failed, using in-memory fallback")
		_ = client.Close()
		rb.useFallback = true
		return rb
	}

	rb.client = client
	rb.pubsub = client.PSubscribe(ctx, SubjectPrefix+"*")
	rb.wg.Add(1)
	go rb.receive()

	logger.Info().Str("addr", cfg.Addr).Str("node_id", nodeID).Msg("Redis event bus initialized")
	return rb
}

func (rb *RedisBus) receive() {
	defer rb.wg.Done()
	ch := rb.pubsub.Channel()
	for {
		select {
		case <-rb.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				rb.logger.Warn().Msg("Redis subscription closed")
				return
			}
			if err := deliverRemote(rb.local, rb.nodeID, []byte(msg.Payload)); err != nil {
				rb.logger.Error().Err(err).Str("channel", msg.Channel).Msg("failed to decode Redis event")
			}
		}
	}
}

// Subscribe registers a local subscriber for an event type.
func (rb *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	return rb.local.Subscribe(eventType)
}

func (rb *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	rb.local.Unsubscribe(eventType, sub)
}

// Publish delivers locally, then to Redis unless the breaker is open.
func (rb *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	rb.local.Publish(eventType, payload)

	rb.mu.Lock()
	fallback := rb.useFallback
	rb.mu.Unlock()
	if fallback {
		return
	}

	data, err := marshalMessage(eventType, payload, rb.nodeID)
	if err != nil {
		rb.logger.Error().Err(err).Msg("failed to marshal Redis message")
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()
	if err := rb.client.Publish(ctx, subject(eventType), data).Err(); err != nil {
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish to Redis")
		rb.handleFailure()
		return
	}

	rb.mu.Lock()
	rb.failCount = 0
	rb.mu.Unlock()
}

// Fallback reports whether the bus is running in-process only.
func (rb *RedisBus) Fallback() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.useFallback
}

func (rb *RedisBus) handleFailure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.failCount++
	if rb.failCount >= rb.maxFails && !rb.useFallback {
		rb.logger.Warn().Int("fail_count", rb.failCount).Msg("Redis failure threshold reached, switching to in-memory fallback")
		rb.useFallback = true
	}
}

// Close stops the receiver and closes the connection and local subscribers.
func (rb *RedisBus) Close() error {
	rb.cancel()
	if rb.pubsub != nil {
		_ = rb.pubsub.Close()
	}
	rb.wg.Wait()

	var err error
	if rb.client != nil {
		err = rb.client.Close()
	}
	_ = rb.local.Close()
	return err
}
