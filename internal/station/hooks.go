/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package station

import (
	"github.com/friendsincode/stationloop/internal/events"
	"github.com/friendsincode/stationloop/internal/telemetry"
	"github.com/friendsincode/stationloop/internal/track"
	"github.com/friendsincode/stationloop/internal/transmission"
)

func (s *Station) wireHooks() {
	id := s.opts.ID

	s.loop.OnNextTrack(func(t *track.Track) {
		if !t.IsRequest() {
			s.mu.Lock()
			s.resumeAt = s.primary.Cursor()
			s.mu.Unlock()
		}
		telemetry.TracksPlayed.WithLabelValues(id).Inc()
		s.logger.Info().
			Str("track", t.Name).
			Str("artist", t.Artist).
			Str("requested_by", t.RequestedBy).
			Msg("now playing")
		s.publish(events.EventNowPlaying, events.Payload{
			"track":   t.Snapshot(),
			"request": t.IsRequest(),
		})
	})

	s.loop.OnInterstitial(func(kind transmission.Kind, t *track.Track) {
		telemetry.InterstitialsPlayed.WithLabelValues(id, string(kind)).Inc()
		s.logger.Debug().Str("kind", string(kind)).Str("track", t.Name).Msg("interstitial")
		s.publish(events.EventInterstitial, events.Payload{
			"kind":  string(kind),
			"track": t.Snapshot(),
		})
	})

	s.loop.OnTrackFailed(func(t *track.Track, err error) {
		telemetry.TrackFailures.WithLabelValues(id).Inc()
		s.publish(events.EventTrackFailed, events.Payload{
			"track": t.Snapshot(),
			"error": err.Error(),
		})
	})

	// The intro clip only precedes requests.
	s.loop.OnAnnouncementFor(func(t *track.Track) *track.Track {
		if s.opts.RequestIntro == nil || !t.IsRequest() {
			return nil
		}
		return s.opts.RequestIntro.Clone()
	})

	s.loop.OnAnnouncementPlayed(func(clip *track.Track) {
		telemetry.InterstitialsPlayed.WithLabelValues(id, string(transmission.KindAnnouncement)).Inc()
		s.publish(events.EventAnnouncement, events.Payload{
			"phase": "played",
			"track": clip.Snapshot(),
		})
	})

	// External announcers follow these to get the next clip ready.
	s.loop.OnPrepareNextAnnouncement(func(next *track.Track) {
		s.publish(events.EventAnnouncement, events.Payload{
			"phase": "prepare",
			"track": next.Snapshot(),
		})
	})

	s.loop.OnStreamStarted(func() {
		s.streamed.Store(true)
		s.publish(events.EventStreamStarted, events.Payload{"name": s.opts.Name})
	})

	s.loop.OnStreamEnded(func() {
		s.logger.Info().Msg("stream ended")
		s.publish(events.EventStreamEnded, events.Payload{"name": s.opts.Name})
	})
}
