/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package transmission

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/friendsincode/stationloop/internal/sequencer"
	"github.com/friendsincode/stationloop/internal/telemetry"
	"github.com/friendsincode/stationloop/internal/track"
)

// Run opens the sink and streams until the primary stops playing or a stop
// is requested. It returns nil on either, ctx.Err() when ctx ends, a
// *TransportError when the sink fails and ErrNothingPlayable once a whole
// pass over the primary failed to play.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	l.mu.Lock()
	primary := l.primary
	l.swapped = false
	l.mu.Unlock()
	if primary == nil {
		return ErrNoPlaylist
	}

	l.skip.Store(false)
	l.stop.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	l.cancelMu.Lock()
	l.cancel = cancel
	l.cancelMu.Unlock()
	defer func() {
		l.cancelMu.Lock()
		l.cancel = nil
		l.cancelMu.Unlock()
		cancel()
	}()

	// The sink may be left over from a previous run or never opened.
	_ = l.sink.Close()
	if err := l.sink.Open(runCtx); err != nil {
		return l.exit(ctx, &TransportError{Op: "open", Err: err})
	}
	defer func() {
		if err := l.sink.Close(); err != nil {
			l.logger.Debug().Err(err).Msg("sink close failed")
		}
	}()

	primary.StartPlaying()
	l.current.Store(primary.Current())

	announce := l.shouldAnnounce()
	if announce {
		l.hooks.firePrepare(primary.PeekNext())
	}

	l.started.Store(true)
	defer l.started.Store(false)
	l.hooks.fireStreamStarted()
	l.logger.Info().Int("tracks", primary.Len()).Msg("stream started")

	first := true
	misses := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		primary = l.cycle()
		if primary == nil || !primary.IsPlaying() {
			break
		}

		cur := primary.Current()
		if cur == nil {
			return ErrNothingToPlay
		}
		l.current.Store(cur)

		if announce {
			if clip := l.hooks.askAnnouncementFor(cur); clip != nil {
				if err := l.play(runCtx, clip, KindAnnouncement); err != nil {
					return l.exit(ctx, err)
				}
				if l.consumeStop() {
					return nil
				}
				l.hooks.fireAnnouncementPlayed(clip)
			}
		}

		l.hooks.fireNextTrack(cur)

		announce = l.shouldAnnounce()
		if announce && !first {
			l.hooks.firePrepare(primary.PeekNext())
		}
		first = false

		if err := l.play(runCtx, cur, KindTrack); err != nil {
			return l.exit(ctx, err)
		}
		if l.consumeStop() {
			return nil
		}
		if l.lastFailed {
			misses++
			if misses >= primary.Len() {
				l.logger.Error().Int("failed", misses).Msg("no track in the playlist is playable")
				return ErrNothingPlayable
			}
		} else {
			misses = 0
		}

		if err := l.interstitial(runCtx); err != nil {
			return l.exit(ctx, err)
		}
		if l.consumeStop() {
			return nil
		}

		if l.stillPrimary(primary) {
			primary.AdvanceForward()
		}
	}

	if l.consumeStop() {
		return nil
	}
	l.logger.Info().Msg("playlist exhausted")
	if l.cfg.EndedOnExhaustion {
		l.hooks.fireStreamEnded()
	}
	return nil
}

// exit maps an error raised while streaming to what Run returns.
func (l *Loop) exit(ctx context.Context, err error) error {
	if l.consumeStop() {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (l *Loop) consumeStop() bool {
	return l.stop.CompareAndSwap(true, false)
}

// interstitial rolls once and streams at most one jingle or advertisement.
func (l *Loop) interstitial(ctx context.Context) error {
	jingles, adverts := l.secondaries()
	kind := PickInterstitial(l.cfg, l.cfg.Dice, nonEmpty(jingles), nonEmpty(adverts))

	var seq *sequencer.Sequencer
	switch kind {
	case KindJingle:
		seq = jingles
	case KindAdvertisement:
		seq = adverts
	default:
		return nil
	}

	item := seq.Current()
	if item == nil {
		return nil
	}
	l.current.Store(item)
	l.hooks.fireInterstitial(kind, item)
	if err := l.play(ctx, item, kind); err != nil {
		return err
	}
	seq.AdvanceForward()
	return nil
}

// play streams one item chunk by chunk. It returns nil when the item ends,
// is skipped, or a stop is requested. Data that cannot be opened or read is
// reported and skipped. Sink failures come back as *TransportError.
func (l *Loop) play(ctx context.Context, t *track.Track, kind Kind) error {
	ctx, span := telemetry.StartPlay(ctx, string(kind), t.Name, t.Location)
	defer span.End()
	defer l.skip.Store(false)
	l.lastFailed = false

	if err := l.sink.SetMetadata(ctx, t.Name); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Warn().Err(err).Str("track", t.Name).Msg("set metadata failed")
	}

	rc, err := l.cfg.Open(ctx, t.Location)
	if err != nil {
		l.fail(t, kind, fmt.Errorf("open %s: %w", t.Location, err))
		telemetry.PlayFailed(span, "open", err)
		return nil
	}
	defer rc.Close()

	buf := make([]byte, l.cfg.ChunkSize)
	for {
		if l.skip.Load() || l.stop.Load() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n, rerr := io.ReadFull(rc, buf)
		if n > 0 {
			if err := l.sink.Send(ctx, buf[:n]); err != nil {
				telemetry.PlayFailed(span, "send", err)
				return transportErr(ctx, "send", err)
			}
			if err := l.sink.Sync(ctx); err != nil {
				telemetry.PlayFailed(span, "sync", err)
				return transportErr(ctx, "sync", err)
			}
		}

		switch {
		case rerr == nil:
		case errors.Is(rerr, io.EOF), errors.Is(rerr, io.ErrUnexpectedEOF):
			return nil
		default:
			l.fail(t, kind, fmt.Errorf("read %s: %w", t.Location, rerr))
			telemetry.PlayFailed(span, "read", rerr)
			return nil
		}
	}
}

func transportErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &TransportError{Op: op, Err: err}
}

func (l *Loop) fail(t *track.Track, kind Kind, err error) {
	l.logger.Warn().Err(err).
		Str("track", t.Name).
		Str("kind", string(kind)).
		Msg("skipping unplayable item")
	l.lastFailed = true
	l.hooks.fireTrackFailed(t, err)
}
