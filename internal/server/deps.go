/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/friendsincode/stationloop/internal/config"
	"github.com/friendsincode/stationloop/internal/eventbus"
	"github.com/friendsincode/stationloop/internal/events"
	"github.com/friendsincode/stationloop/internal/storage"
)

// newBroker picks the event transport. Networked buses fall back to
// in-process delivery when their server is unreachable.
func newBroker(cfg *config.Config, logger zerolog.Logger) events.Broker {
	switch cfg.EventBus {
	case config.EventBusRedis:
		rc := eventbus.DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		return eventbus.NewRedisBus(rc, cfg.InstanceID, logger)
	case config.EventBusNATS:
		nc := eventbus.DefaultNATSConfig()
		nc.URL = cfg.NATSURL
		nc.Token = cfg.NATSToken
		if cfg.InstanceID != "" {
			nc.Name = "stationloop-" + cfg.InstanceID
		}
		return eventbus.NewNATSBus(nc, cfg.InstanceID, logger)
	default:
		return events.NewBus()
	}
}

// newMediaRouter serves local paths from MediaRoot, http(s) locations, and
// s3:// locations when S3 access is configured.
func newMediaRouter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storage.Router, error) {
	var objects *storage.S3
	if cfg.S3Region != "" || cfg.S3Endpoint != "" || cfg.S3AccessKeyID != "" {
		var err error
		objects, err = storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 media: %w", err)
		}
		logger.Info().Str("endpoint", cfg.S3Endpoint).Msg("s3 media access enabled")
	}
	return storage.NewRouter(
		storage.NewFilesystem(cfg.MediaRoot),
		objects,
		storage.NewHTTP(cfg.HTTPMediaTimeout),
		logger,
	), nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
