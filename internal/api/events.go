/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/friendsincode/stationloop/internal/events"
	"github.com/friendsincode/stationloop/internal/telemetry"
)

const pingInterval = 15 * time.Second

type envelope struct {
	Type    events.EventType `json:"type"`
	Payload events.Payload   `json:"payload"`
}

// handleEvents streams bus events over a websocket. ?types= selects event
// types (default all), ?station= keeps one station's events.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	eventTypes, err := parseEventTypes(r.URL.Query().Get("types"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_event_type")
		return
	}
	stationID := r.URL.Query().Get("station")

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.EventStreams.Inc()
	defer telemetry.EventStreams.Dec()

	// Clients only listen; CloseRead handles their close frames.
	ctx := conn.CloseRead(r.Context())
	feed := a.subscribe(ctx, eventTypes)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				return
			}
		case ev, ok := <-feed:
			if !ok {
				conn.Close(ws.StatusGoingAway, "event bus closed")
				return
			}
			if stationID != "" && ev.Payload["station_id"] != stationID {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				a.logger.Error().Err(err).Str("event_type", string(ev.Type)).Msg("marshal event")
				continue
			}
			if err := conn.Write(ctx, ws.MessageText, data); err != nil {
				a.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

// subscribe merges one subscription per type into a single feed, closed
// once ctx ends or the bus shuts down.
func (a *API) subscribe(ctx context.Context, types []events.EventType) <-chan envelope {
	out := make(chan envelope, 32)
	var wg sync.WaitGroup
	for _, eventType := range types {
		sub := a.bus.Subscribe(eventType)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer a.bus.Unsubscribe(eventType, sub)
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					select {
					case out <- envelope{Type: eventType, Payload: payload}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func parseEventTypes(raw string) ([]events.EventType, error) {
	if strings.TrimSpace(raw) == "" {
		return events.AllTypes, nil
	}
	var out []events.EventType
	for _, part := range strings.Split(raw, ",") {
		t := events.EventType(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if !slices.Contains(events.AllTypes, t) {
			return nil, fmt.Errorf("unknown event type %q", t)
		}
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return events.AllTypes, nil
	}
	return out, nil
}
