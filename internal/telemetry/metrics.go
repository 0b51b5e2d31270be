/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stationloop"

var (
	// TracksPlayed counts primary tracks started, requests included.
	TracksPlayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tracks_played_total",
		Help:      "Primary tracks started.",
	}, []string{"station"})

	InterstitialsPlayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interstitials_played_total",
		Help:      "Jingles, advertisements and announcements played.",
	}, []string{"station", "kind"})

	BytesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_sent_total",
		Help:      "Audio bytes handed to the sink.",
	}, []string{"station"})

	Skips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "skips_total",
		Help:      "Items cut short by a skip request.",
	}, []string{"station"})

	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Listener requests by outcome.",
	}, []string{"station", "outcome"})

	TrackFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "track_failures_total",
		Help:      "Items that could not be opened or read.",
	}, []string{"station"})

	TransportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transport_errors_total",
		Help:      "Sink failures that ended a run.",
	}, []string{"station"})

	StationRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "station_running",
		Help:      "1 while the station's transmission loop runs.",
	}, []string{"station"})

	Listeners = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "listeners",
		Help:      "Connected listeners on built-in mounts.",
	}, []string{"mount"})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "HTTP requests handled.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_active_connections",
		Help:      "In-flight HTTP requests, streaming listeners included.",
	})

	EventStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_streams",
		Help:      "Open event websocket connections.",
	})
)

// Handler exposes metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
