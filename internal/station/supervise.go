/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package station

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/friendsincode/stationloop/internal/events"
	"github.com/friendsincode/stationloop/internal/telemetry"
	"github.com/friendsincode/stationloop/internal/transmission"
)

// Start begins streaming in the background. The station keeps retrying
// after sink failures or unplayable media until Stop, ctx ending, or the restart policy giving up.
func (s *Station) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.supervising {
		return transmission.ErrAlreadyRunning
	}

	s.resumeAt = s.opts.StartPosition
	s.lastErr = nil
	s.since = time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	s.supervising = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.supervise(runCtx, s.done)

	s.logger.Info().Msg("station starting")
	return nil
}

// Stop ends the stream, announcing its end, and waits for the run to
// finish or ctx to expire. Stopping a stopped station is a no-op.
func (s *Station) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	s.loop.RequestStop(true)
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until the station stops on its own or ctx ends.
func (s *Station) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the station is started.
func (s *Station) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supervising
}

func (s *Station) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if s.opts.Restart.Initial > 0 {
		b.InitialInterval = s.opts.Restart.Initial
	}
	if s.opts.Restart.Max > 0 {
		b.MaxInterval = s.opts.Restart.Max
	} else {
		b.MaxInterval = 30 * time.Second
	}
	b.MaxElapsedTime = s.opts.Restart.MaxElapsed
	b.Reset()
	return b
}

func (s *Station) supervise(ctx context.Context, done chan struct{}) {
	id := s.opts.ID
	defer func() {
		s.mu.Lock()
		s.supervising = false
		s.cancel = nil
		s.mu.Unlock()
		close(done)
		s.publish(events.EventStationStopped, events.Payload{})
	}()

	bo := s.newBackoff()
	for {
		s.prepareRun()
		s.streamed.Store(false)

		telemetry.StationRunning.WithLabelValues(id).Set(1)
		err := s.loop.Run(ctx)
		telemetry.StationRunning.WithLabelValues(id).Set(0)

		switch {
		case err == nil:
			s.logger.Info().Msg("station stopped")
			return
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			s.logger.Info().Err(err).Msg("station cancelled")
			return
		}

		s.setErr(err)
		s.publish(events.EventStationError, events.Payload{"error": err.Error()})
		switch {
		case transmission.IsTransport(err):
			telemetry.TransportErrors.WithLabelValues(id).Inc()
		case errors.Is(err, transmission.ErrNothingPlayable):
			// Media may come back (remounted disk, S3 outage), so retry.
		default:
			s.logger.Error().Err(err).Msg("station failed")
			return
		}

		if s.streamed.Load() && !errors.Is(err, transmission.ErrNothingPlayable) {
			bo.Reset()
		}
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			s.logger.Error().Err(err).Msg("station keeps failing, giving up")
			return
		}
		s.logger.Warn().Err(err).Dur("retry_in", wait).Msg("station failed, restarting")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// prepareRun restores the library and resumes where the last run was
// interrupted. A request that was mid-flight goes back to the queue head.
func (s *Station) prepareRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary.Load(s.library)
	s.primary.SetStartPosition(s.resumeAt)
	s.requeueLocked()
	s.feedLocked()
}

func (s *Station) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
