/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the station control and observation endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/stationloop/internal/auth"
	"github.com/friendsincode/stationloop/internal/events"
	"github.com/friendsincode/stationloop/internal/logbuffer"
	"github.com/friendsincode/stationloop/internal/station"
	"github.com/friendsincode/stationloop/internal/storage"
)

// Options tunes access to the control endpoints.
type Options struct {
	// JWTSecret signs control tokens. Empty leaves the endpoints open.
	JWTSecret []byte

	// Locations enables requests by free-form location. Nil accepts
	// library track ids only.
	Locations *storage.LocationPolicy
}

// API exposes HTTP handlers.
type API struct {
	stations  *station.Manager
	bus       events.Broker
	logs      *logbuffer.Buffer
	jwtSecret []byte
	locations *storage.LocationPolicy
	logger    zerolog.Logger
}

// New creates the API. logs may be nil.
func New(stations *station.Manager, bus events.Broker, logs *logbuffer.Buffer, opts Options, logger zerolog.Logger) *API {
	return &API{
		stations:  stations,
		bus:       bus,
		logs:      logs,
		jwtSecret: opts.JWTSecret,
		locations: opts.Locations,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers the /api/v1 tree.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stations", a.handleStationsList)

		r.Route("/stations/{stationID}", func(r chi.Router) {
			r.Use(a.stationCtx)

			r.Get("/", a.handleStationsGet)
			r.Get("/tracks", a.handleTracks)
			r.Get("/queue", a.handleQueue)
			r.Get("/logs", a.handleLogs)

			r.Group(func(pr chi.Router) {
				pr.Use(auth.Middleware(a.jwtSecret))
				pr.Use(a.requireStationScope)

				pr.Post("/skip", a.handleSkip)
				pr.Post("/requests", a.handleRequest)
				pr.Post("/start", a.handleStart)
				pr.Post("/stop", a.handleStop)
			})
		})

		r.With(auth.Middleware(a.jwtSecret)).Get("/events", a.handleEvents)
	})
}

type ctxKey struct{}

// stationCtx resolves {stationID} or answers 404.
func (a *API) stationCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, err := a.stations.Get(chi.URLParam(r, "stationID"))
		if err != nil {
			writeError(w, http.StatusNotFound, "station_not_found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, st)))
	})
}

func (a *API) requireStationScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.Permits(r, stationFrom(r).ID()) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func stationFrom(r *http.Request) *station.Station {
	st, _ := r.Context().Value(ctxKey{}).(*station.Station)
	return st
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
