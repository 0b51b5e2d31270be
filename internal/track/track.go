/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package track describes a playable item and its informational playback state.
package track

import (
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the informational playback state of a track.
// Scheduling never looks at it.
type State int32

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// UnknownDuration marks a track whose length was not supplied by its source.
const UnknownDuration time.Duration = -1

// Info is the immutable descriptor of a track.
type Info struct {
	ID          string        `json:"id"`
	Location    string        `json:"location"`
	Name        string        `json:"name"`
	Artist      string        `json:"artist,omitempty"`
	RequestedBy string        `json:"requested_by,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Track is a playable item. Info is fixed at construction; only the
// playback state changes afterwards.
type Track struct {
	Info
	state atomic.Int32
}

// Option customises a track at construction.
type Option func(*Info)

// WithName sets the display name instead of deriving it from the location.
func WithName(name string) Option {
	return func(i *Info) { i.Name = strings.TrimSpace(name) }
}

// WithArtist sets the artist.
func WithArtist(artist string) Option {
	return func(i *Info) { i.Artist = strings.TrimSpace(artist) }
}

// WithRequestedBy marks the track as a listener request.
func WithRequestedBy(who string) Option {
	return func(i *Info) { i.RequestedBy = strings.TrimSpace(who) }
}

// WithDuration records the length advertised by the source.
func WithDuration(d time.Duration) Option {
	return func(i *Info) { i.Duration = d }
}

// New creates a stopped track for location.
func New(location string, opts ...Option) *Track {
	info := Info{
		ID:       uuid.NewString(),
		Location: location,
		Duration: UnknownDuration,
	}
	for _, opt := range opts {
		opt(&info)
	}
	if info.Name == "" {
		info.Name = NameFromLocation(location)
	}
	return &Track{Info: info}
}

// NameFromLocation derives a display name from a file name:
// "Daft_Punk-One_More_Time.mp3" becomes "Daft Punk - One More Time".
func NameFromLocation(location string) string {
	base := filepath.Base(location)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " - ")
	return base
}

// IsRequest reports whether a listener asked for this track.
func (t *Track) IsRequest() bool {
	return t.RequestedBy != ""
}

func (t *Track) Play()  { t.state.Store(int32(Playing)) }
func (t *Track) Pause() { t.state.Store(int32(Paused)) }
func (t *Track) Stop()  { t.state.Store(int32(Stopped)) }

// State returns the current playback state.
func (t *Track) State() State {
	return State(t.state.Load())
}

// IsPlaying reports whether the track is marked as playing.
func (t *Track) IsPlaying() bool {
	return t.State() == Playing
}

// Clone returns an independent stopped copy sharing the same Info.
func (t *Track) Clone() *Track {
	return &Track{Info: t.Info}
}

// Snapshot returns the descriptor together with the current state.
func (t *Track) Snapshot() Snapshot {
	return Snapshot{Info: t.Info, State: t.State().String()}
}

// Snapshot is a serialisable view of a track.
type Snapshot struct {
	Info
	State string `json:"state"`
}
