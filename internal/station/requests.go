/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package station

import (
	"fmt"
	"strings"

	"github.com/friendsincode/stationloop/internal/events"
	"github.com/friendsincode/stationloop/internal/telemetry"
	"github.com/friendsincode/stationloop/internal/track"
)

const anonymous = "listener"

// Request queues t for playback after the current item. It returns the
// position in the queue, 1 being next. Requests play one at a time in the
// order received.
func (s *Station) Request(t *track.Track) (int, error) {
	if t.RequestedBy == "" {
		t.RequestedBy = anonymous
	}

	s.mu.Lock()
	if len(s.queue) >= s.opts.RequestQueueSize {
		s.mu.Unlock()
		telemetry.Requests.WithLabelValues(s.opts.ID, "rejected").Inc()
		return 0, fmt.Errorf("%w (%d pending)", ErrQueueFull, s.opts.RequestQueueSize)
	}
	s.queue = append(s.queue, t)
	pos := len(s.queue)
	if s.inserted != nil {
		pos++
	}
	s.feedLocked()
	s.mu.Unlock()

	telemetry.Requests.WithLabelValues(s.opts.ID, "queued").Inc()
	s.logger.Info().Str("track", t.Name).Str("requested_by", t.RequestedBy).Int("position", pos).Msg("request queued")
	s.publish(events.EventRequestQueued, events.Payload{
		"track":    t.Snapshot(),
		"position": pos,
	})
	return pos, nil
}

// RequestTrack queues a copy of the library track with the given ID.
func (s *Station) RequestTrack(id, requestedBy string) (*track.Track, int, error) {
	for _, t := range s.library {
		if strings.EqualFold(t.ID, id) {
			req := t.Clone()
			req.RequestedBy = requestedBy
			pos, err := s.Request(req)
			if err != nil {
				return nil, 0, err
			}
			return req, pos, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: %s", ErrUnknownTrack, id)
}

// Queue lists pending requests, the one already scheduled first.
func (s *Station) Queue() []track.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]track.Snapshot, 0, len(s.queue)+1)
	if s.inserted != nil {
		out = append(out, s.inserted.Snapshot())
	}
	for _, t := range s.queue {
		out = append(out, t.Snapshot())
	}
	return out
}

// feedLocked hands the next request to the sequencer unless one is already
// scheduled.
func (s *Station) feedLocked() {
	if s.inserted != nil || len(s.queue) == 0 {
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.inserted = next
	s.primary.InsertAndPlayNext(next, true)
}

// requestEnded runs when the sequencer moves past a forced track.
func (s *Station) requestEnded(t *track.Track) {
	s.mu.Lock()
	if t != s.inserted {
		s.mu.Unlock()
		return
	}
	s.inserted = nil
	s.feedLocked()
	s.mu.Unlock()

	telemetry.Requests.WithLabelValues(s.opts.ID, "played").Inc()
	s.publish(events.EventRequestPlayed, events.Payload{"track": t.Snapshot()})
}

// requeueLocked pulls a scheduled request back to the head of the queue,
// for when the primary is reloaded.
func (s *Station) requeueLocked() {
	if s.inserted == nil {
		return
	}
	s.queue = append([]*track.Track{s.inserted}, s.queue...)
	s.inserted = nil
}
