/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package station ties a transmission loop to its playlists, a listener
// request queue, events and metrics, and keeps it running across sink
// failures.
package station

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/stationloop/internal/events"
	"github.com/friendsincode/stationloop/internal/sequencer"
	"github.com/friendsincode/stationloop/internal/telemetry"
	"github.com/friendsincode/stationloop/internal/track"
	"github.com/friendsincode/stationloop/internal/transmission"
)

var (
	ErrQueueFull    = errors.New("request queue is full")
	ErrUnknownTrack = errors.New("track not in station library")
)

// Options describes one station.
type Options struct {
	ID          string
	Name        string
	Description string
	Genre       string
	URL         string
	SinkType    string

	Loop          bool
	StartPosition int
	Transmission  transmission.Config

	// RequestIntro, when set, plays before every listener request.
	RequestIntro     *track.Track
	RequestQueueSize int

	Restart RestartPolicy
}

// RestartPolicy bounds the exponential backoff between runs after a
// transport failure. A zero MaxElapsed retries forever.
type RestartPolicy struct {
	Initial    time.Duration
	Max        time.Duration
	MaxElapsed time.Duration
}

// Media is a station's content.
type Media struct {
	Tracks         []*track.Track
	Jingles        []*track.Track
	Advertisements []*track.Track
}

// Station is one running radio channel.
type Station struct {
	opts   Options
	loop   *transmission.Loop
	bus    events.Publisher
	logger zerolog.Logger

	library []*track.Track
	primary *sequencer.Sequencer
	jingles *sequencer.Sequencer
	adverts *sequencer.Sequencer

	// mu guards the request queue and run bookkeeping.
	mu       sync.Mutex
	queue    []*track.Track
	inserted *track.Track
	resumeAt int
	lastErr  error
	since    time.Time

	supervising bool
	cancel      context.CancelFunc
	done        chan struct{}

	streamed atomic.Bool
}

// New builds a stopped station streaming to out. bus may be nil.
func New(opts Options, media Media, out transmission.Sink, bus events.Publisher, logger zerolog.Logger) (*Station, error) {
	if err := opts.Transmission.Validate(); err != nil {
		return nil, err
	}
	if opts.StartPosition < 0 || (len(media.Tracks) > 0 && opts.StartPosition >= len(media.Tracks)) {
		return nil, fmt.Errorf("start position %d outside playlist of %d tracks", opts.StartPosition, len(media.Tracks))
	}
	if opts.Name == "" {
		opts.Name = opts.ID
	}
	if opts.RequestQueueSize <= 0 {
		opts.RequestQueueSize = 16
	}
	if opts.RequestIntro != nil {
		opts.Transmission.Announce = true
	}
	if bus == nil {
		bus = events.NewBus()
	}

	logger = logger.With().Str("component", "station").Str("station_id", opts.ID).Logger()
	s := &Station{
		opts:     opts,
		bus:      bus,
		logger:   logger,
		library:  media.Tracks,
		primary:  sequencer.New(),
		jingles:  sequencer.New(),
		adverts:  sequencer.New(),
		resumeAt: opts.StartPosition,
	}

	s.primary.Load(media.Tracks)
	s.primary.SetLoop(opts.Loop)
	s.primary.SetStartPosition(opts.StartPosition)
	s.primary.OnForcedTrackEnded(s.requestEnded)

	// Secondaries cycle forever and are started once.
	for seq, tracks := range map[*sequencer.Sequencer][]*track.Track{s.jingles: media.Jingles, s.adverts: media.Advertisements} {
		seq.Load(tracks)
		seq.SetLoop(true)
		seq.StartPlaying()
	}

	s.loop = transmission.New(&meter{Sink: out, station: opts.ID}, opts.Transmission, logger)
	s.loop.SetPlaylist(s.primary)
	s.loop.SetJingles(s.jingles)
	s.loop.SetAdvertisements(s.adverts)
	s.wireHooks()
	return s, nil
}

func (s *Station) ID() string   { return s.opts.ID }
func (s *Station) Name() string { return s.opts.Name }

// Loop exposes the transmission loop, for callers adding their own hooks.
func (s *Station) Loop() *transmission.Loop { return s.loop }

// Skip cuts the current item short.
func (s *Station) Skip() {
	s.loop.RequestNext()
	telemetry.Skips.WithLabelValues(s.opts.ID).Inc()
	s.logger.Info().Msg("skip requested")
}

// NowPlaying returns the item currently streaming, or nil.
func (s *Station) NowPlaying() *track.Snapshot {
	t := s.loop.CurrentTrack()
	if t == nil || !s.loop.Started() {
		return nil
	}
	snap := t.Snapshot()
	return &snap
}

// Library returns the station's primary tracks, requests excluded.
func (s *Station) Library() []track.Snapshot {
	out := make([]track.Snapshot, len(s.library))
	for i, t := range s.library {
		out[i] = t.Snapshot()
	}
	return out
}

// Status is a point-in-time view of a station.
type Status struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Genre          string          `json:"genre,omitempty"`
	URL            string          `json:"url,omitempty"`
	Sink           string          `json:"sink,omitempty"`
	Running        bool            `json:"running"`
	OnAir          bool            `json:"on_air"`
	Since          *time.Time      `json:"since,omitempty"`
	NowPlaying     *track.Snapshot `json:"now_playing,omitempty"`
	Loop           bool            `json:"loop"`
	Cursor         int             `json:"cursor"`
	Tracks         int             `json:"tracks"`
	Jingles        int             `json:"jingles"`
	Advertisements int             `json:"advertisements"`
	Queued         int             `json:"queued"`
	LastError      string          `json:"last_error,omitempty"`
}

// Snapshot reports the station's state.
func (s *Station) Snapshot() Status {
	st := Status{
		ID:             s.opts.ID,
		Name:           s.opts.Name,
		Description:    s.opts.Description,
		Genre:          s.opts.Genre,
		URL:            s.opts.URL,
		Sink:           s.opts.SinkType,
		OnAir:          s.loop.Started(),
		NowPlaying:     s.NowPlaying(),
		Loop:           s.primary.Loop(),
		Cursor:         s.primary.Cursor(),
		Tracks:         len(s.library),
		Jingles:        s.jingles.Len(),
		Advertisements: s.adverts.Len(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st.Running = s.supervising
	st.Queued = len(s.queue)
	if s.inserted != nil {
		st.Queued++
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if st.Running && !s.since.IsZero() {
		since := s.since
		st.Since = &since
	}
	return st
}

func (s *Station) publish(eventType events.EventType, payload events.Payload) {
	payload["station_id"] = s.opts.ID
	s.bus.Publish(eventType, payload)
}

// meter counts bytes on their way to the sink.
type meter struct {
	transmission.Sink
	station string
}

func (m *meter) Send(ctx context.Context, chunk []byte) error {
	if err := m.Sink.Send(ctx, chunk); err != nil {
		return err
	}
	telemetry.BytesSent.WithLabelValues(m.station).Add(float64(len(chunk)))
	return nil
}
