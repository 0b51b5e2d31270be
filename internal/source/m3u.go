/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/stationloop/internal/track"
)

const (
	m3uHeader = "#EXTM3U"
	m3uInfo   = "#EXTINF:"

	// MaxM3ULine bounds a single playlist line, URL or #EXTINF text.
	MaxM3ULine = 64 << 10
)

// PlaylistFile parses an extended M3U file. Relative entries resolve against
// the playlist's directory.
func PlaylistFile(path string) ([]*track.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("open playlist %s: %w", path, err)
	}
	defer f.Close()

	return ParseM3U(f, path, filepath.Dir(path))
}

// ParseM3U reads an extended M3U document. name labels parse errors; baseDir
// resolves relative entries and may be empty to keep them as written.
func ParseM3U(r io.Reader, name, baseDir string) ([]*track.Track, error) {
	var (
		tracks     []*track.Track
		pending    []track.Option
		sawHeader  bool
		lineNumber int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxM3ULine)
	for sc.Scan() {
		lineNumber++
		line := strings.TrimSpace(sc.Text())
		if lineNumber == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" {
			continue
		}

		if !sawHeader {
			if !strings.HasPrefix(line, m3uHeader) {
				return nil, &ParseError{Path: name, Line: lineNumber, Msg: "missing #EXTM3U header"}
			}
			sawHeader = true
			continue
		}

		switch {
		case strings.HasPrefix(line, m3uInfo):
			opts, err := parseInfo(strings.TrimPrefix(line, m3uInfo))
			if err != nil {
				return nil, &ParseError{Path: name, Line: lineNumber, Msg: err.Error()}
			}
			pending = opts
		case strings.HasPrefix(line, "#"):
			// Other directives and comments carry nothing we use.
		default:
			tracks = append(tracks, track.New(resolve(baseDir, line), pending...))
			pending = nil
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &ParseError{Path: name, Line: lineNumber + 1, Msg: fmt.Sprintf("line longer than %d bytes", MaxM3ULine)}
		}
		return nil, fmt.Errorf("read playlist %s: %w", name, err)
	}
	return tracks, nil
}

// parseInfo handles "<seconds>,<Name> - <Artist>".
func parseInfo(s string) ([]track.Option, error) {
	secs, text, ok := strings.Cut(s, ",")
	if !ok {
		return nil, errors.New("#EXTINF without a comma")
	}

	// Attributes such as tvg-id="..." may follow the duration.
	if i := strings.IndexAny(secs, " \t"); i >= 0 {
		secs = secs[:i]
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(secs), 64)
	if err != nil {
		return nil, fmt.Errorf("#EXTINF duration %q is not a number", secs)
	}

	var opts []track.Option
	if seconds >= 0 {
		opts = append(opts, track.WithDuration(time.Duration(seconds*float64(time.Second))))
	}

	text = strings.TrimSpace(text)
	if name, artist, ok := strings.Cut(text, "-"); ok {
		opts = append(opts, track.WithName(name), track.WithArtist(artist))
	} else if text != "" {
		opts = append(opts, track.WithName(text))
	}
	return opts, nil
}

func resolve(baseDir, location string) string {
	if strings.Contains(location, "://") || baseDir == "" || filepath.IsAbs(location) {
		return location
	}
	return filepath.Join(baseDir, location)
}
