/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package transmission runs a station: it streams the primary sequencer's
// tracks to an audio sink, rolls for jingles and advertisements between
// them, and plays announcement clips ahead of tracks.
package transmission

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/friendsincode/stationloop/internal/sequencer"
	"github.com/friendsincode/stationloop/internal/track"
)

// Sink is the destination of the audio bytes. Open and Close are only ever
// called from Run. Sync blocks until the sink is ready for the next chunk.
type Sink interface {
	Open(ctx context.Context) error
	Close() error
	Send(ctx context.Context, chunk []byte) error
	Sync(ctx context.Context) error
	SetMetadata(ctx context.Context, title string) error
}

// Loop schedules and streams one station.
type Loop struct {
	sink   Sink
	cfg    Config
	logger zerolog.Logger

	hooks hooks

	// mu guards the sequencer references and the swap marker.
	mu      sync.Mutex
	primary *sequencer.Sequencer
	jingles *sequencer.Sequencer
	adverts *sequencer.Sequencer
	swapped bool

	skip     atomic.Bool
	stop     atomic.Bool
	announce atomic.Bool
	started  atomic.Bool
	running  atomic.Bool

	current atomic.Pointer[track.Track]

	// lastFailed is set by play when the item could not be opened or read.
	// Only the Run goroutine touches it.
	lastFailed bool

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// New creates a loop streaming to sink. Zero config fields take defaults.
func New(sink Sink, cfg Config, logger zerolog.Logger) *Loop {
	cfg = cfg.withDefaults()
	l := &Loop{
		sink:   sink,
		cfg:    cfg,
		logger: logger.With().Str("component", "transmission").Logger(),
	}
	l.announce.Store(cfg.Announce)
	return l
}

// SetPlaylist replaces the primary sequencer. The previous one is stopped
// and its current track cut short; a running loop starts the new one at the
// next cycle boundary.
func (l *Loop) SetPlaylist(p *sequencer.Sequencer) {
	l.mu.Lock()
	old := l.primary
	l.primary = p
	l.swapped = old != nil && old != p
	l.mu.Unlock()

	if old != nil && old != p {
		old.StopPlaying()
		l.skip.Store(true)
	}
}

func (l *Loop) SetJingles(p *sequencer.Sequencer) {
	l.mu.Lock()
	l.jingles = p
	l.mu.Unlock()
}

func (l *Loop) SetAdvertisements(p *sequencer.Sequencer) {
	l.mu.Lock()
	l.adverts = p
	l.mu.Unlock()
}

// Playlist returns the primary sequencer.
func (l *Loop) Playlist() *sequencer.Sequencer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.primary
}

func (l *Loop) SetAnnounce(enabled bool) { l.announce.Store(enabled) }

// RequestNext cuts the item currently streaming short.
func (l *Loop) RequestNext() { l.skip.Store(true) }

// RequestStop stops the primary and makes Run return after the current
// chunk. A blocked Send or Sync is cancelled. With announce set, the
// stream-ended hook fires if the loop had started.
//
// It only affects a Run already in progress: Run clears the stop flag on
// entry, so a loop stopped while idle can be run again. Cancel the context
// passed to Run to stop a loop that may not have started yet.
func (l *Loop) RequestStop(announce bool) {
	if p := l.Playlist(); p != nil {
		p.StopPlaying()
	}
	if announce && l.started.Load() {
		l.hooks.fireStreamEnded()
	}
	l.stop.Store(true)

	l.cancelMu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.cancelMu.Unlock()
}

// CurrentTrack is the item most recently handed to the sink, whichever
// sequencer it came from. Observers only.
func (l *Loop) CurrentTrack() *track.Track {
	return l.current.Load()
}

// Started reports whether Run has opened the sink and begun streaming.
func (l *Loop) Started() bool { return l.started.Load() }

// Running reports whether Run is executing.
func (l *Loop) Running() bool { return l.running.Load() }

func (l *Loop) secondaries() (jingles, adverts *sequencer.Sequencer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jingles, l.adverts
}

// cycle returns the primary for the next cycle, starting it if it was
// swapped in since the last one.
func (l *Loop) cycle() *sequencer.Sequencer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.swapped && l.primary != nil {
		l.swapped = false
		l.primary.StartPlaying()
	}
	return l.primary
}

// stillPrimary reports whether p is the primary and no swap is pending.
func (l *Loop) stillPrimary(p *sequencer.Sequencer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.primary == p && !l.swapped
}

func (l *Loop) shouldAnnounce() bool {
	if !l.announce.Load() {
		return false
	}
	return l.hooks.askShouldAnnounce()
}
