/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/stationloop/internal/auth"
	"github.com/friendsincode/stationloop/internal/logbuffer"
	"github.com/friendsincode/stationloop/internal/station"
	"github.com/friendsincode/stationloop/internal/track"
	"github.com/friendsincode/stationloop/internal/transmission"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

func (a *API) handleStationsList(w http.ResponseWriter, r *http.Request) {
	list := a.stations.List()
	out := make([]station.Status, 0, len(list))
	for _, st := range list {
		out = append(out, st.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": out})
}

func (a *API) handleStationsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stationFrom(r).Snapshot())
}

func (a *API) handleTracks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tracks": stationFrom(r).Library()})
}

func (a *API) handleQueue(w http.ResponseWriter, r *http.Request) {
	st := stationFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"now_playing": st.NowPlaying(),
		"queue":       st.Queue(),
	})
}

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	st := stationFrom(r)
	if a.logs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []logbuffer.Entry{}, "components": []string{}})
		return
	}

	q := r.URL.Query()
	query := logbuffer.Query{
		StationID:  st.ID(),
		Level:      strings.ToLower(q.Get("level")),
		Component:  q.Get("component"),
		Search:     q.Get("search"),
		Limit:      defaultLogLimit,
		Descending: q.Get("order") != "asc",
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		query.Limit = min(n, maxLogLimit)
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_since")
			return
		}
		query.Since = since
	}

	entries := a.logs.Find(query)
	if entries == nil {
		entries = []logbuffer.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":    entries,
		"components": a.logs.Components(st.ID()),
	})
}

func (a *API) handleSkip(w http.ResponseWriter, r *http.Request) {
	st := stationFrom(r)
	if !st.Running() {
		writeError(w, http.StatusConflict, "station_not_running")
		return
	}
	st.Skip()
	writeJSON(w, http.StatusAccepted, map[string]any{"skipped": st.NowPlaying()})
}

type requestBody struct {
	TrackID     string `json:"track_id"`
	Location    string `json:"location"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	RequestedBy string `json:"requested_by"`
}

func (a *API) handleRequest(w http.ResponseWriter, r *http.Request) {
	st := stationFrom(r)

	var body requestBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if body.RequestedBy == "" {
		if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
			body.RequestedBy = claims.Subject
		}
	}

	var (
		req *track.Track
		pos int
		err error
	)
	switch {
	case body.TrackID != "":
		req, pos, err = st.RequestTrack(body.TrackID, body.RequestedBy)
	case body.Location != "":
		if a.locations == nil {
			writeError(w, http.StatusForbidden, "location_requests_disabled")
			return
		}
		location, perr := a.locations.Resolve(body.Location)
		if perr != nil {
			a.logger.Warn().Err(perr).Str("station_id", st.ID()).Msg("rejected requested location")
			writeError(w, http.StatusBadRequest, "location_not_allowed")
			return
		}
		opts := []track.Option{track.WithRequestedBy(body.RequestedBy)}
		if body.Name != "" {
			opts = append(opts, track.WithName(body.Name))
		}
		if body.Artist != "" {
			opts = append(opts, track.WithArtist(body.Artist))
		}
		req = track.New(location, opts...)
		pos, err = st.Request(req)
	default:
		writeError(w, http.StatusBadRequest, "track_id_or_location_required")
		return
	}

	switch {
	case errors.Is(err, station.ErrUnknownTrack):
		writeError(w, http.StatusNotFound, "track_not_found")
		return
	case errors.Is(err, station.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "queue_full")
		return
	case err != nil:
		a.logger.Error().Err(err).Str("station_id", st.ID()).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "request_failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"position": pos,
		"track":    req.Snapshot(),
	})
}

func (a *API) handleStart(w http.ResponseWriter, r *http.Request) {
	st := stationFrom(r)
	// The station outlives the request.
	err := st.Start(context.WithoutCancel(r.Context()))
	if errors.Is(err, transmission.ErrAlreadyRunning) {
		writeError(w, http.StatusConflict, "station_already_running")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	a.logger.Info().Str("station_id", st.ID()).Msg("station started via api")
	writeJSON(w, http.StatusAccepted, st.Snapshot())
}

func (a *API) handleStop(w http.ResponseWriter, r *http.Request) {
	st := stationFrom(r)
	if !st.Running() {
		writeError(w, http.StatusConflict, "station_not_running")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := st.Stop(ctx); err != nil {
		a.logger.Warn().Err(err).Str("station_id", st.ID()).Msg("stop did not complete")
		writeError(w, http.StatusGatewayTimeout, "stop_timeout")
		return
	}
	a.logger.Info().Str("station_id", st.ID()).Msg("station stopped via api")
	writeJSON(w, http.StatusOK, st.Snapshot())
}
