/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package station

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/friendsincode/stationloop/internal/broadcast"
	"github.com/friendsincode/stationloop/internal/config"
	"github.com/friendsincode/stationloop/internal/events"
	"github.com/friendsincode/stationloop/internal/sink"
	"github.com/friendsincode/stationloop/internal/source"
	"github.com/friendsincode/stationloop/internal/storage"
	"github.com/friendsincode/stationloop/internal/track"
	"github.com/friendsincode/stationloop/internal/transmission"
)

// Deps are the shared services stations are built on.
type Deps struct {
	Media  storage.Opener    // resolves track locations; local files when nil
	Mounts *broadcast.Server // required for broadcast sinks
	Bus    events.Publisher
	Logger zerolog.Logger

	// Dice overrides the interstitial roll, for reproducible runs.
	Dice transmission.Dice
	// Sink replaces the configured sink, for dry runs.
	Sink transmission.Sink
}

// FromConfig loads a station's media and builds it with its configured sink.
func FromConfig(sc config.StationConfig, deps Deps) (*Station, error) {
	media, err := LoadMedia(sc)
	if err != nil {
		return nil, err
	}

	out := deps.Sink
	if out == nil {
		if out, err = newSink(sc, deps); err != nil {
			return nil, err
		}
	}

	tc := sc.Transmission()
	tc.Dice = deps.Dice
	if deps.Media != nil {
		tc.Open = deps.Media.Open
	}

	opts := Options{
		ID:               sc.ID,
		Name:             sc.Name,
		Description:      sc.Description,
		Genre:            sc.Genre,
		URL:              sc.URL,
		SinkType:         string(sc.Sink.Type),
		Loop:             sc.Looping(),
		StartPosition:    sc.StartPosition,
		Transmission:     tc,
		RequestQueueSize: sc.RequestQueueSize,
	}
	if sc.RequestIntro != "" {
		opts.RequestIntro = track.New(sc.RequestIntro, track.WithName("Request intro"))
	}

	st, err := New(opts, media, out, deps.Bus, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", sc.ID, err)
	}
	return st, nil
}

// LoadMedia reads the station's playlist and optional jingle and
// advertisement sources.
func LoadMedia(sc config.StationConfig) (Media, error) {
	var m Media
	var err error
	if m.Tracks, err = source.Load(sc.Playlist); err != nil {
		return m, fmt.Errorf("station %s playlist: %w", sc.ID, err)
	}
	if !sc.Jingles.IsZero() {
		if m.Jingles, err = source.Load(sc.Jingles); err != nil {
			return m, fmt.Errorf("station %s jingles: %w", sc.ID, err)
		}
	}
	if !sc.Advertisements.IsZero() {
		if m.Advertisements, err = source.Load(sc.Advertisements); err != nil {
			return m, fmt.Errorf("station %s advertisements: %w", sc.ID, err)
		}
	}
	return m, nil
}

func newSink(sc config.StationConfig, deps Deps) (transmission.Sink, error) {
	switch sc.Sink.Type {
	case config.SinkIcecast:
		return sink.NewIcecast(sink.IcecastConfig{
			Addr:          sc.Sink.Addr,
			Mount:         sc.Sink.Mount,
			User:          sc.Sink.User,
			Password:      sc.Sink.Password,
			AdminUser:     sc.Sink.AdminUser,
			AdminPassword: sc.Sink.AdminPassword,
			Name:          sc.Name,
			Description:   sc.Description,
			Genre:         sc.Genre,
			URL:           sc.URL,
			Public:        sc.Sink.Public,
			Bitrate:       sc.Sink.Bitrate,
			ContentType:   sc.Sink.ContentType,
		}, deps.Logger), nil
	case config.SinkBroadcast:
		if deps.Mounts == nil {
			return nil, fmt.Errorf("station %s: broadcast sink without a listener server", sc.ID)
		}
		mount := deps.Mounts.CreateMount(sc.ID, sc.Sink.ContentType, sc.Sink.Bitrate, sc.Sink.MetaInt)
		return sink.NewBroadcast(mount), nil
	case config.SinkNull:
		return sink.NewNull(sc.Sink.Bitrate), nil
	default:
		return nil, fmt.Errorf("station %s: unknown sink type %q", sc.ID, sc.Sink.Type)
	}
}
