/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EventBusBackend selects how events leave the process.
type EventBusBackend string

const (
	EventBusMemory EventBusBackend = "memory"
	EventBusRedis  EventBusBackend = "redis"
	EventBusNATS   EventBusBackend = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment  string
	LogLevel     string
	HTTPBind     string
	HTTPPort     int
	MetricsBind  string // Separate listener for /metrics; empty serves it on the main router
	StationsFile string
	MediaRoot    string

	JWTSigningKey string

	// Requests by location rather than library track id
	AllowLocationRequests bool
	RequestAllowedHosts   []string

	// Remote media
	HTTPMediaTimeout  time.Duration
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle    bool   // Required for MinIO

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Event fan-out
	EventBus      EventBusBackend
	InstanceID    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string
	NATSToken     string

	LogBufferSize int
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:  getEnvAny([]string{"STATIONLOOP_ENV"}, "development"),
		LogLevel:     getEnvAny([]string{"STATIONLOOP_LOG_LEVEL"}, ""),
		HTTPBind:     getEnvAny([]string{"STATIONLOOP_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:     getEnvIntAny([]string{"STATIONLOOP_HTTP_PORT"}, 8080),
		MetricsBind:  getEnvAny([]string{"STATIONLOOP_METRICS_BIND"}, ""),
		StationsFile: getEnvAny([]string{"STATIONLOOP_STATIONS_FILE"}, "stations.yaml"),
		MediaRoot:    getEnvAny([]string{"STATIONLOOP_MEDIA_ROOT"}, ""),

		JWTSigningKey: getEnvAny([]string{"STATIONLOOP_JWT_SIGNING_KEY"}, ""),

		AllowLocationRequests: getEnvBoolAny([]string{"STATIONLOOP_ALLOW_LOCATION_REQUESTS"}, false),
		RequestAllowedHosts:   getEnvListAny([]string{"STATIONLOOP_REQUEST_ALLOWED_HOSTS"}),

		HTTPMediaTimeout:  time.Duration(getEnvIntAny([]string{"STATIONLOOP_HTTP_MEDIA_TIMEOUT_SECONDS"}, 15)) * time.Second,
		S3AccessKeyID:     getEnvAny([]string{"STATIONLOOP_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"STATIONLOOP_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"STATIONLOOP_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Endpoint:        getEnvAny([]string{"STATIONLOOP_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"STATIONLOOP_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		TracingEnabled:    getEnvBoolAny([]string{"STATIONLOOP_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"STATIONLOOP_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"STATIONLOOP_TRACING_SAMPLE_RATE"}, 1.0),

		EventBus:      EventBusBackend(strings.ToLower(getEnvAny([]string{"STATIONLOOP_EVENT_BUS"}, string(EventBusMemory)))),
		InstanceID:    getEnvAny([]string{"STATIONLOOP_INSTANCE_ID"}, ""),
		RedisAddr:     getEnvAny([]string{"STATIONLOOP_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"STATIONLOOP_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"STATIONLOOP_REDIS_DB"}, 0),
		NATSURL:       getEnvAny([]string{"STATIONLOOP_NATS_URL"}, "nats://127.0.0.1:4222"),
		NATSToken:     getEnvAny([]string{"STATIONLOOP_NATS_TOKEN"}, ""),

		LogBufferSize: getEnvIntAny([]string{"STATIONLOOP_LOG_BUFFER_SIZE"}, 1000),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.EventBus {
	case EventBusMemory, EventBusRedis, EventBusNATS:
	default:
		return fmt.Errorf("unsupported event bus backend %q", c.EventBus)
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("STATIONLOOP_HTTP_PORT must be within 1-65535, got %d", c.HTTPPort)
	}

	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("STATIONLOOP_TRACING_SAMPLE_RATE must be within [0,1], got %v", c.TracingSampleRate)
	}

	if strings.EqualFold(c.Environment, "production") && c.JWTSigningKey == "" {
		return fmt.Errorf("STATIONLOOP_JWT_SIGNING_KEY must be provided in production")
	}

	if strings.TrimSpace(c.StationsFile) == "" {
		return fmt.Errorf("STATIONLOOP_STATIONS_FILE must not be empty")
	}
	return nil
}

// HTTPAddr is the listen address of the control server.
func (c *Config) HTTPAddr() string {
	return c.HTTPBind + ":" + strconv.Itoa(c.HTTPPort)
}

// getEnvListAny splits the first non-empty value on commas, dropping blanks.
func getEnvListAny(keys []string) []string {
	var out []string
	for _, item := range strings.Split(getEnvAny(keys, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
