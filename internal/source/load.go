/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package source

import (
	"fmt"
	"strings"

	"github.com/friendsincode/stationloop/internal/track"
)

// Kind selects how a Spec is loaded.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindPlaylist  Kind = "playlist"
)

// Spec describes where a station's tracks come from.
type Spec struct {
	Type     Kind   `yaml:"type" json:"type"`
	Path     string `yaml:"path" json:"path"`
	ReadTags bool   `yaml:"read_tags" json:"read_tags,omitempty"`
}

// IsZero reports whether the spec was left out of the config.
func (s Spec) IsZero() bool { return s.Path == "" }

// Validate checks the spec is loadable in principle.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("source path is required")
	}
	switch s.kind() {
	case KindDirectory, KindPlaylist:
		return nil
	default:
		return fmt.Errorf("unknown source type %q", s.Type)
	}
}

// kind infers the type from the path when it is not set.
func (s Spec) kind() Kind {
	if s.Type != "" {
		return Kind(strings.ToLower(string(s.Type)))
	}
	lower := strings.ToLower(s.Path)
	if strings.HasSuffix(lower, ".m3u") || strings.HasSuffix(lower, ".m3u8") {
		return KindPlaylist
	}
	return KindDirectory
}

// Load builds the track list described by s.
func Load(s Spec) ([]*track.Track, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch s.kind() {
	case KindPlaylist:
		return PlaylistFile(s.Path)
	default:
		return Directory(s.Path, DirectoryOptions{ReadTags: s.ReadTags})
	}
}
