/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/stationloop/internal/source"
	"github.com/friendsincode/stationloop/internal/transmission"
)

// SinkType selects where a station's audio goes.
type SinkType string

const (
	SinkIcecast   SinkType = "icecast"
	SinkBroadcast SinkType = "broadcast"
	SinkNull      SinkType = "null"
)

// SinkConfig describes a station's audio destination.
type SinkConfig struct {
	Type        SinkType `yaml:"type"`
	Bitrate     int      `yaml:"bitrate"`
	ContentType string   `yaml:"content_type"`

	// Icecast
	Addr          string `yaml:"addr"`
	Mount         string `yaml:"mount"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password"`
	Public        bool   `yaml:"public"`

	// Broadcast
	MetaInt int `yaml:"metaint"`
}

// StationConfig is one entry of the stations file.
type StationConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Genre       string `yaml:"genre"`
	URL         string `yaml:"url"`

	Sink SinkConfig `yaml:"sink"`

	Playlist       source.Spec `yaml:"playlist"`
	Jingles        source.Spec `yaml:"jingles"`
	Advertisements source.Spec `yaml:"advertisements"`

	Loop          *bool `yaml:"loop"`
	StartPosition int   `yaml:"start_position"`

	ChunkSize           int  `yaml:"chunk_size"`
	JingleOrAdChance    *int `yaml:"jingle_or_ad_chance"`
	JingleChance        *int `yaml:"jingle_chance"`
	AdvertisementChance *int `yaml:"advertisement_chance"`

	Announce          bool   `yaml:"announce"`
	RequestIntro      string `yaml:"request_intro"`
	RequestQueueSize  int    `yaml:"request_queue_size"`
	EndedOnExhaustion bool   `yaml:"ended_on_exhaustion"`
	Autostart         *bool  `yaml:"autostart"`
}

// DefaultRequestQueueSize bounds pending listener requests per station.
const DefaultRequestQueueSize = 16

type stationsFile struct {
	Stations []StationConfig `yaml:"stations"`
}

var stationIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// LoadStations reads and validates the stations file at path.
func LoadStations(path string) ([]StationConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stations file: %w", err)
	}
	defer f.Close()

	stations, err := ParseStations(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stations, nil
}

// ParseStations decodes a stations document, fills defaults and validates
// every entry.
func ParseStations(r io.Reader) ([]StationConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc stationsFile
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode stations: %w", err)
	}
	if len(doc.Stations) == 0 {
		return nil, fmt.Errorf("no stations defined")
	}

	seen := make(map[string]bool, len(doc.Stations))
	for i := range doc.Stations {
		st := &doc.Stations[i]
		st.applyDefaults()
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("station %d (%s): %w", i, st.ID, err)
		}
		if seen[st.ID] {
			return nil, fmt.Errorf("station %d: duplicate id %q", i, st.ID)
		}
		seen[st.ID] = true
	}
	return doc.Stations, nil
}

func (s *StationConfig) applyDefaults() {
	s.ID = strings.TrimSpace(s.ID)
	if s.Name == "" {
		s.Name = s.ID
	}
	if s.Sink.Type == "" {
		s.Sink.Type = SinkBroadcast
	}
	s.Sink.Type = SinkType(strings.ToLower(string(s.Sink.Type)))
	if s.Sink.Bitrate == 0 {
		s.Sink.Bitrate = 128
	}
	if s.Sink.Type == SinkIcecast && s.Sink.Mount == "" {
		s.Sink.Mount = "/" + s.ID
	}
	if s.RequestQueueSize == 0 {
		s.RequestQueueSize = DefaultRequestQueueSize
	}
}

// Validate reports the first problem with the station definition.
func (s StationConfig) Validate() error {
	if !stationIDPattern.MatchString(s.ID) {
		return fmt.Errorf("id %q must be lowercase letters, digits, '-' or '_'", s.ID)
	}

	if err := s.Playlist.Validate(); err != nil {
		return fmt.Errorf("playlist: %w", err)
	}
	if !s.Jingles.IsZero() {
		if err := s.Jingles.Validate(); err != nil {
			return fmt.Errorf("jingles: %w", err)
		}
	}
	if !s.Advertisements.IsZero() {
		if err := s.Advertisements.Validate(); err != nil {
			return fmt.Errorf("advertisements: %w", err)
		}
	}

	switch s.Sink.Type {
	case SinkIcecast:
		if s.Sink.Addr == "" {
			return fmt.Errorf("sink.addr is required for icecast")
		}
	case SinkBroadcast, SinkNull:
	default:
		return fmt.Errorf("unknown sink type %q", s.Sink.Type)
	}
	if s.Sink.Bitrate < 0 {
		return fmt.Errorf("sink.bitrate must not be negative")
	}
	if s.StartPosition < 0 {
		return fmt.Errorf("start_position must not be negative")
	}
	if s.RequestQueueSize < 0 {
		return fmt.Errorf("request_queue_size must not be negative")
	}

	if err := s.Transmission().Validate(); err != nil {
		return err
	}
	return nil
}

// Transmission returns the loop tuning for this station. Unset chances take
// the stock values.
func (s StationConfig) Transmission() transmission.Config {
	cfg := transmission.DefaultConfig()
	if s.ChunkSize != 0 {
		cfg.ChunkSize = s.ChunkSize
	}
	if s.JingleOrAdChance != nil {
		cfg.JingleOrAdChance = *s.JingleOrAdChance
	}
	if s.JingleChance != nil {
		cfg.JingleChance = *s.JingleChance
	}
	if s.AdvertisementChance != nil {
		cfg.AdvertisementChance = *s.AdvertisementChance
	}
	cfg.Announce = s.Announce
	cfg.EndedOnExhaustion = s.EndedOnExhaustion
	return cfg
}

// Looping reports whether the primary playlist wraps around; default true.
func (s StationConfig) Looping() bool {
	return s.Loop == nil || *s.Loop
}

// StartsAutomatically reports whether serve starts the station; default true.
func (s StationConfig) StartsAutomatically() bool {
	return s.Autostart == nil || *s.Autostart
}
