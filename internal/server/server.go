/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/stationloop/internal/api"
	"github.com/friendsincode/stationloop/internal/broadcast"
	"github.com/friendsincode/stationloop/internal/config"
	"github.com/friendsincode/stationloop/internal/events"
	"github.com/friendsincode/stationloop/internal/logbuffer"
	"github.com/friendsincode/stationloop/internal/station"
	"github.com/friendsincode/stationloop/internal/storage"
	"github.com/friendsincode/stationloop/internal/telemetry"
	"github.com/friendsincode/stationloop/internal/version"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	bus       events.Broker
	logBuffer *logbuffer.Buffer
	mounts    *broadcast.Server
	stations  *station.Manager
	autostart []string
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("stationloop-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Listener streams and event sockets are long-lived.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" || strings.HasPrefix(r.URL.Path, "/listen/") {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:       cfg,
		logger:    logger.With().Str("component", "server").Logger(),
		router:    router,
		logBuffer: logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// Streams write indefinitely; non-streaming routes are bounded by
		// the timeout middleware.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.MetricsBind != "" {
		metrics := http.NewServeMux()
		metrics.Handle("/metrics", telemetry.Handler())
		srv.metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           metrics,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	s.bus = newBroker(s.cfg, s.logger)
	s.DeferClose(s.bus.Close)

	media, err := newMediaRouter(context.Background(), s.cfg, s.logger)
	if err != nil {
		return err
	}

	s.mounts = broadcast.NewServer(s.logger, s.bus)
	s.DeferClose(func() error {
		s.mounts.Close()
		return nil
	})

	defs, err := config.LoadStations(s.cfg.StationsFile)
	if err != nil {
		return err
	}

	s.stations = station.NewManager(s.logger)
	if err := s.stations.Build(defs, station.Deps{
		Media:  media,
		Mounts: s.mounts,
		Bus:    s.bus,
		Logger: s.logger,
	}); err != nil {
		return err
	}
	for _, sc := range defs {
		if sc.StartsAutomatically() {
			s.autostart = append(s.autostart, sc.ID)
		}
	}

	s.logger.Info().
		Int("stations", len(defs)).
		Int("autostart", len(s.autostart)).
		Str("event_bus", string(s.cfg.EventBus)).
		Msg("stations loaded")
	return nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	if s.cfg.MetricsBind == "" {
		s.router.Handle("/metrics", telemetry.Handler())
	}

	s.router.Get("/listen", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"mounts":          s.mounts.ListenerStats(),
			"total_listeners": s.mounts.TotalListeners(),
		})
	})
	s.router.Handle("/listen/*", http.StripPrefix("/listen", s.mounts))

	opts := api.Options{JWTSecret: []byte(s.cfg.JWTSigningKey)}
	if s.cfg.AllowLocationRequests {
		opts.Locations = &storage.LocationPolicy{
			Root:         s.cfg.MediaRoot,
			AllowedHosts: s.cfg.RequestAllowedHosts,
		}
	}
	api.New(s.stations, s.bus, s.logBuffer, opts, s.logger).Routes(s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	running := 0
	for _, st := range s.stations.List() {
		if st.Running() {
			running++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  version.Version,
		"stations": len(s.stations.List()),
		"running":  running,
	})
}

// Start launches the stations marked autostart.
func (s *Server) Start(ctx context.Context) error {
	if len(s.autostart) == 0 {
		return nil
	}
	return s.stations.Start(ctx, s.autostart...)
}

// ListenAndServe serves HTTP, and metrics when bound separately, until
// Shutdown.
func (s *Server) ListenAndServe() error {
	errCh := make(chan error, 2)
	serve := func(name string, hs *http.Server) {
		s.logger.Info().Str("addr", hs.Addr).Msg(name + " listening")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s: %w", name, err)
			return
		}
		errCh <- nil
	}

	n := 1
	go serve("http server", s.httpServer)
	if s.metricsServer != nil {
		n++
		go serve("metrics server", s.metricsServer)
	}

	var firstErr error
	for i := 0; i < n; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			// One listener failing takes the other down too.
			_ = s.shutdownHTTP(context.Background())
		}
	}
	return firstErr
}

// Shutdown stops the stations, disconnects listeners and stops serving.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.stations.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	// Closing mounts ends the listener streams so http shutdown can drain.
	s.mounts.Close()
	if err := s.shutdownHTTP(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Server) shutdownHTTP(ctx context.Context) error {
	var errs []error
	for _, hs := range []*http.Server{s.httpServer, s.metricsServer} {
		if hs == nil {
			continue
		}
		if err := hs.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler { return s.router }

// Stations exposes the station manager.
func (s *Server) Stations() *station.Manager { return s.stations }

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
