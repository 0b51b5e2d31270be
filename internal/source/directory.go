/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package source builds track lists from a music directory or an extended
// M3U playlist file.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"

	"github.com/friendsincode/stationloop/internal/track"
)

// DirectoryOptions tunes a directory scan.
type DirectoryOptions struct {
	// ReadTags fills name and artist from embedded tags when present.
	ReadTags bool
	// Extensions overrides the accepted file extensions (default ".mp3").
	Extensions []string
}

// Directory returns the audio files directly inside dir, sorted by path.
func Directory(dir string, opts DirectoryOptions) ([]*track.Track, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: dir, Err: err}
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, &NotFoundError{Path: dir, Err: errors.New("not a directory")}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".mp3"}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if hasExt(e.Name(), exts) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	tracks := make([]*track.Track, 0, len(paths))
	for _, p := range paths {
		var topts []track.Option
		if opts.ReadTags {
			topts = tagOptions(p)
		}
		tracks = append(tracks, track.New(p, topts...))
	}
	return tracks, nil
}

func hasExt(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, want := range exts {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// tagOptions reads embedded metadata. Unreadable or untagged files fall back
// to the name derived from the file name.
func tagOptions(path string) []track.Option {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil
	}

	var opts []track.Option
	if title := strings.TrimSpace(m.Title()); title != "" {
		opts = append(opts, track.WithName(title))
	}
	artist := m.Artist()
	if artist == "" {
		artist = m.AlbumArtist()
	}
	if artist != "" {
		opts = append(opts, track.WithArtist(artist))
	}
	return opts
}
