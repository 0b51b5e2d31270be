/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package transmission

import (
	"slices"
	"sync"

	"github.com/friendsincode/stationloop/internal/track"
)

// Kind names what a streamed item is.
type Kind string

const (
	KindNone          Kind = ""
	KindTrack         Kind = "track"
	KindJingle        Kind = "jingle"
	KindAdvertisement Kind = "advertisement"
	KindAnnouncement  Kind = "announcement"
)

// hooks is the callback registry. Multi-subscriber slots append; single
// slots overwrite the previous handler.
type hooks struct {
	mu sync.RWMutex

	nextTrack    []func(*track.Track)
	interstitial []func(Kind, *track.Track)
	trackFailed  []func(*track.Track, error)

	shouldAnnounce      func() bool
	announcementFor     func(*track.Track) *track.Track
	announcementPlayed  func(*track.Track)
	prepareAnnouncement func(*track.Track)
	streamStarted       func()
	streamEnded         func()
}

// OnNextTrack subscribes fn to every primary track about to stream.
func (l *Loop) OnNextTrack(fn func(*track.Track)) {
	l.hooks.mu.Lock()
	l.hooks.nextTrack = append(l.hooks.nextTrack, fn)
	l.hooks.mu.Unlock()
}

// OnInterstitial subscribes fn to jingles and advertisements about to stream.
func (l *Loop) OnInterstitial(fn func(Kind, *track.Track)) {
	l.hooks.mu.Lock()
	l.hooks.interstitial = append(l.hooks.interstitial, fn)
	l.hooks.mu.Unlock()
}

// OnTrackFailed subscribes fn to items whose data could not be opened or read.
func (l *Loop) OnTrackFailed(fn func(*track.Track, error)) {
	l.hooks.mu.Lock()
	l.hooks.trackFailed = append(l.hooks.trackFailed, fn)
	l.hooks.mu.Unlock()
}

// OnShouldAnnounce sets the gate consulted before each announcement.
// Without one, announcements follow SetAnnounce alone.
func (l *Loop) OnShouldAnnounce(fn func() bool) {
	l.hooks.mu.Lock()
	l.hooks.shouldAnnounce = fn
	l.hooks.mu.Unlock()
}

// OnAnnouncementFor sets the provider of the clip played before a track.
// Returning nil plays nothing.
func (l *Loop) OnAnnouncementFor(fn func(*track.Track) *track.Track) {
	l.hooks.mu.Lock()
	l.hooks.announcementFor = fn
	l.hooks.mu.Unlock()
}

func (l *Loop) OnAnnouncementPlayed(fn func(*track.Track)) {
	l.hooks.mu.Lock()
	l.hooks.announcementPlayed = fn
	l.hooks.mu.Unlock()
}

// OnPrepareNextAnnouncement sets the handler that pre-renders the clip for
// the upcoming track. It runs on its own goroutine with a copy of the track.
func (l *Loop) OnPrepareNextAnnouncement(fn func(*track.Track)) {
	l.hooks.mu.Lock()
	l.hooks.prepareAnnouncement = fn
	l.hooks.mu.Unlock()
}

func (l *Loop) OnStreamStarted(fn func()) {
	l.hooks.mu.Lock()
	l.hooks.streamStarted = fn
	l.hooks.mu.Unlock()
}

func (l *Loop) OnStreamEnded(fn func()) {
	l.hooks.mu.Lock()
	l.hooks.streamEnded = fn
	l.hooks.mu.Unlock()
}

func (h *hooks) fireNextTrack(t *track.Track) {
	h.mu.RLock()
	fns := slices.Clone(h.nextTrack)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(t)
	}
}

func (h *hooks) fireInterstitial(kind Kind, t *track.Track) {
	h.mu.RLock()
	fns := slices.Clone(h.interstitial)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(kind, t)
	}
}

func (h *hooks) fireTrackFailed(t *track.Track, err error) {
	h.mu.RLock()
	fns := slices.Clone(h.trackFailed)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(t, err)
	}
}

func (h *hooks) askShouldAnnounce() bool {
	h.mu.RLock()
	fn := h.shouldAnnounce
	h.mu.RUnlock()
	return fn == nil || fn()
}

func (h *hooks) askAnnouncementFor(t *track.Track) *track.Track {
	h.mu.RLock()
	fn := h.announcementFor
	h.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(t)
}

func (h *hooks) fireAnnouncementPlayed(t *track.Track) {
	h.mu.RLock()
	fn := h.announcementPlayed
	h.mu.RUnlock()
	if fn != nil {
		fn(t)
	}
}

// firePrepare dispatches without waiting. The handler only ever sees a clone.
func (h *hooks) firePrepare(t *track.Track) {
	if t == nil {
		return
	}
	h.mu.RLock()
	fn := h.prepareAnnouncement
	h.mu.RUnlock()
	if fn == nil {
		return
	}
	go fn(t.Clone())
}

func (h *hooks) fireStreamStarted() {
	h.mu.RLock()
	fn := h.streamStarted
	h.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (h *hooks) fireStreamEnded() {
	h.mu.RLock()
	fn := h.streamEnded
	h.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
