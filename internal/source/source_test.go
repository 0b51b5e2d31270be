package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/friendsincode/stationloop/internal/track"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func names(tracks []*track.Track) []string {
	out := make([]string, len(tracks))
	for i, tr := range tracks {
		out[i] = tr.Name
	}
	return out
}

func TestDirectoryListsMP3sSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b_song.mp3"), "x")
	writeFile(t, filepath.Join(dir, "A-Side.MP3"), "x")
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	writeFile(t, filepath.Join(dir, "nested", "deep.mp3"), "x")
	if err := os.Mkdir(filepath.Join(dir, "folder.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}

	tracks, err := Directory(dir, DirectoryOptions{})
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	got := names(tracks)
	want := []string{"A - Side", "b song"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}
	if tracks[0].Location != filepath.Join(dir, "A-Side.MP3") {
		t.Fatalf("unexpected location %s", tracks[0].Location)
	}
}

func TestDirectoryReadTagsFallsBackToFileName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Untagged_Song.mp3"), "not really audio")

	tracks, err := Directory(dir, DirectoryOptions{ReadTags: true})
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Name != "Untagged Song" {
		t.Fatalf("unexpected tracks %v", names(tracks))
	}
}

func TestDirectoryCustomExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ogg"), "x")
	writeFile(t, filepath.Join(dir, "b.mp3"), "x")

	tracks, err := Directory(dir, DirectoryOptions{Extensions: []string{".ogg"}})
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Name != "a" {
		t.Fatalf("unexpected tracks %v", names(tracks))
	}
}

func TestDirectoryNotFound(t *testing.T) {
	_, err := Directory(filepath.Join(t.TempDir(), "missing"), DirectoryOptions{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
}

func TestDirectoryOnFileIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.mp3")
	writeFile(t, path, "x")
	if _, err := Directory(path, DirectoryOptions{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseM3U(t *testing.T) {
	doc := strings.Join([]string{
		"",
		"#EXTM3U",
		"#EXTINF:215,Around the World - Daft Punk",
		"music/around.mp3",
		"# a comment",
		"#EXTINF:-1,Live Feed",
		"http://example.com/live.mp3",
		"",
		"/abs/plain_file.mp3",
		"#EXTINF:10,Re-Entry - The Band - Live",
		"reentry.mp3",
	}, "\n")

	tracks, err := ParseM3U(strings.NewReader(doc), "test.m3u", "/library")
	if err != nil {
		t.Fatalf("ParseM3U: %v", err)
	}
	if len(tracks) != 4 {
		t.Fatalf("got %d tracks", len(tracks))
	}

	tests := []struct {
		location string
		name     string
		artist   string
		duration time.Duration
	}{
		{"/library/music/around.mp3", "Around the World", "Daft Punk", 215 * time.Second},
		{"http://example.com/live.mp3", "Live Feed", "", track.UnknownDuration},
		{"/abs/plain_file.mp3", "plain file", "", track.UnknownDuration},
		{"/library/reentry.mp3", "Re", "Entry - The Band - Live", 10 * time.Second},
	}
	for i, tt := range tests {
		tr := tracks[i]
		if tr.Location != tt.location || tr.Name != tt.name || tr.Artist != tt.artist || tr.Duration != tt.duration {
			t.Errorf("track %d = {%s %q %q %v}, want {%s %q %q %v}",
				i, tr.Location, tr.Name, tr.Artist, tr.Duration,
				tt.location, tt.name, tt.artist, tt.duration)
		}
	}
}

func TestParseM3UErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		line int
	}{
		{"missing header", "song.mp3\n", 1},
		{"header after blank lines still required", "\n\nsong.mp3\n", 3},
		{"extinf without comma", "#EXTM3U\n#EXTINF:120 Song\nsong.mp3\n", 2},
		{"non numeric duration", "#EXTM3U\n#EXTINF:abc,Song\nsong.mp3\n", 2},
		{"overlong line", "#EXTM3U\na.mp3\n" + strings.Repeat("x", MaxM3ULine+1) + "\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseM3U(strings.NewReader(tt.doc), "bad.m3u", "")
			if !errors.Is(err, ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Line != tt.line {
				t.Fatalf("line %d, want %d", pe.Line, tt.line)
			}
		})
	}
}

func TestParseM3UEmpty(t *testing.T) {
	for _, doc := range []string{"", "\n  \n", "#EXTM3U\n"} {
		tracks, err := ParseM3U(strings.NewReader(doc), "empty.m3u", "")
		if err != nil {
			t.Fatalf("%q: %v", doc, err)
		}
		if len(tracks) != 0 {
			t.Fatalf("%q: expected no tracks, got %d", doc, len(tracks))
		}
	}
}

func TestParseM3UBOM(t *testing.T) {
	tracks, err := ParseM3U(strings.NewReader("\ufeff#EXTM3U\na.mp3\n"), "bom.m3u", "")
	if err != nil {
		t.Fatalf("ParseM3U: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("got %d tracks", len(tracks))
	}
}

func TestPlaylistFileResolvesRelativeToPlaylist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lists", "main.m3u")
	writeFile(t, path, "#EXTM3U\n#EXTINF:1,Intro - Host\n../audio/intro.mp3\n")

	tracks, err := PlaylistFile(path)
	if err != nil {
		t.Fatalf("PlaylistFile: %v", err)
	}
	want := filepath.Join(dir, "audio", "intro.mp3")
	if len(tracks) != 1 || tracks[0].Location != want {
		t.Fatalf("got %+v, want location %s", tracks, want)
	}
}

func TestPlaylistFileNotFound(t *testing.T) {
	_, err := PlaylistFile(filepath.Join(t.TempDir(), "nope.m3u"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadDispatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.mp3"), "x")
	list := filepath.Join(dir, "list.m3u")
	writeFile(t, list, "#EXTM3U\none.mp3\ntwo.mp3\n")

	tests := []struct {
		name    string
		spec    Spec
		want    int
		wantErr bool
	}{
		{"explicit directory", Spec{Type: KindDirectory, Path: dir}, 1, false},
		{"inferred directory", Spec{Path: dir}, 1, false},
		{"explicit playlist", Spec{Type: KindPlaylist, Path: list}, 2, false},
		{"inferred playlist", Spec{Path: list}, 2, false},
		{"unknown type", Spec{Type: "ftp", Path: dir}, 0, true},
		{"empty path", Spec{Type: KindDirectory}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracks, err := Load(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(tracks) != tt.want {
				t.Fatalf("got %d tracks, want %d", len(tracks), tt.want)
			}
		})
	}
}
