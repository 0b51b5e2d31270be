/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sequencer implements the ordered track cursor a station plays from:
// forward/backward advance, optional wraparound, and one-shot forced
// insertions that play next and then hand control back to the rotation.
package sequencer

import (
	"slices"
	"sync"

	"github.com/friendsincode/stationloop/internal/track"
)

const noForced = -1

// Sequencer is safe for concurrent use. Forced-track listeners are called
// without the internal lock held, so they may call back into the sequencer.
type Sequencer struct {
	mu sync.Mutex

	tracks   []*track.Track
	cursor   int
	previous int
	startAt  int

	loop    bool
	running bool
	stopped bool

	forced       int // index of the pending forced track, noForced when none
	removeForced bool

	forcedEnded []func(*track.Track)
}

// New returns an empty, stopped sequencer.
func New() *Sequencer {
	s := &Sequencer{forced: noForced}
	s.stopLocked()
	return s
}

// Load replaces the track list. A pending forced insertion is dropped because
// its index no longer refers to anything; the cursor is left alone.
func (s *Sequencer) Load(tracks []*track.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = slices.Clone(tracks)
	s.forced = noForced
	s.removeForced = false
}

func (s *Sequencer) SetLoop(enabled bool) {
	s.mu.Lock()
	s.loop = enabled
	s.mu.Unlock()
}

func (s *Sequencer) Loop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// SetStartPosition sets the index StartPlaying begins at.
func (s *Sequencer) SetStartPosition(index int) {
	s.mu.Lock()
	s.startAt = index
	s.mu.Unlock()
}

// StartPlaying marks the sequencer running from the configured start position.
func (s *Sequencer) StartPlaying() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.stopped = false
	s.cursor = s.startAt
	s.previous = 0
}

// StartPlayingAt is SetStartPosition followed by StartPlaying.
func (s *Sequencer) StartPlayingAt(index int) {
	s.SetStartPosition(index)
	s.StartPlaying()
}

// StopPlaying rewinds the cursor and marks the sequencer stopped.
func (s *Sequencer) StopPlaying() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

func (s *Sequencer) stopLocked() {
	s.cursor = 0
	s.stopped = true
	s.running = false
}

func (s *Sequencer) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sequencer) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracks)
}

func (s *Sequencer) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Tracks returns a copy of the track list in play order.
func (s *Sequencer) Tracks() []*track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tracks)
}

// Pending returns the forced track waiting to play, if any.
func (s *Sequencer) Pending() (t *track.Track, removeAfter bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forced == noForced {
		return nil, false, false
	}
	return s.at(s.forced), s.removeForced, true
}

// Current returns the track under the cursor, or nil.
func (s *Sequencer) Current() *track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at(s.cursor)
}

func (s *Sequencer) at(i int) *track.Track {
	if i < 0 || i >= len(s.tracks) {
		return nil
	}
	return s.tracks[i]
}

// PeekNext returns the track AdvanceForward would make current without
// changing any state.
func (s *Sequencer) PeekNext() *track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tracks) == 0 {
		return nil
	}

	p := s.plan(1)
	idx := p.cursor
	// Planned indexes refer to the list after removal of the resolved track.
	if p.remove && idx >= p.resolved {
		idx++
	}
	return s.at(idx)
}

func (s *Sequencer) AdvanceForward()  { s.advance(1) }
func (s *Sequencer) AdvanceBackward() { s.advance(-1) }

// InsertAndPlayNext appends t and makes it the very next track. Once it has
// played, the cursor returns to where it was interrupted; removeAfter drops
// it from the list at that point.
func (s *Sequencer) InsertAndPlayNext(t *track.Track, removeAfter bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, t)
	s.forced = len(s.tracks) - 1
	s.removeForced = removeAfter
}

// OnForcedTrackEnded registers fn to be called once per resolved forced track.
func (s *Sequencer) OnForcedTrackEnded(fn func(*track.Track)) {
	s.mu.Lock()
	s.forcedEnded = append(s.forcedEnded, fn)
	s.mu.Unlock()
}

// step is the outcome of one advance, computed without touching state.
type step struct {
	resolve  bool // the forced track under the cursor is consumed
	resolved int
	remove   bool
	stop     bool
	cursor   int
	previous int
	forced   int
}

func (s *Sequencer) plan(dir int) step {
	p := step{
		cursor:   s.cursor,
		previous: s.previous,
		forced:   s.forced,
		resolved: noForced,
	}
	n := len(s.tracks)

	if s.forced != noForced && s.cursor == s.forced {
		p.resolve = true
		p.resolved = s.forced
		p.remove = s.removeForced
		p.forced = noForced
		p.cursor = s.previous
		if p.remove {
			n--
			if p.cursor > p.resolved {
				p.cursor--
			}
		}
	}

	if n == 0 {
		p.cursor, p.previous = 0, 0
		return p
	}

	p.previous = p.cursor
	last := n - 1
	next := p.cursor + dir

	switch {
	case next > last:
		if s.loop {
			next = 0
		} else {
			if p.cursor == last && s.running {
				p.stop = true
			}
			next = last
		}
	case next < 0:
		if s.loop {
			next = last
		} else {
			if p.cursor == 0 && s.running {
				p.stop = true
			}
			next = 0
		}
	}

	if p.forced != noForced && next != p.forced {
		next = p.forced
	}
	p.cursor = next
	return p
}

func (s *Sequencer) advance(dir int) {
	s.mu.Lock()
	if len(s.tracks) == 0 {
		s.mu.Unlock()
		return
	}

	old := s.at(s.cursor)
	p := s.plan(dir)

	var ended *track.Track
	if p.resolve {
		ended = s.tracks[p.resolved]
		if p.remove {
			s.tracks = slices.Delete(s.tracks, p.resolved, p.resolved+1)
		}
		s.forced = noForced
		s.removeForced = false
	}
	if p.stop {
		s.stopLocked()
	}
	s.cursor = p.cursor
	s.previous = p.previous

	if old != nil {
		old.Stop()
	}
	if cur := s.at(s.cursor); cur != nil {
		cur.Play()
	}

	listeners := slices.Clone(s.forcedEnded)
	s.mu.Unlock()

	if ended != nil {
		for _, fn := range listeners {
			fn(ended)
		}
	}
}
