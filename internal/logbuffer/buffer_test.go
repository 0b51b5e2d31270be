package logbuffer

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestBufferEvictsOldest(t *testing.T) {
	b := New(3)
	for _, msg := range []string{"a", "b", "c", "d"} {
		b.Add(Entry{Message: msg})
	}
	got := b.Entries()
	if len(got) != 3 || got[0].Message != "b" || got[2].Message != "d" {
		t.Fatalf("unexpected entries %+v", got)
	}
	if b.Len() != 3 {
		t.Fatalf("Len = %d", b.Len())
	}
}

func TestFind(t *testing.T) {
	b := New(10)
	base := time.Unix(1000, 0)
	b.Add(Entry{Timestamp: base, Level: "info", Message: "now playing", Component: "station", StationID: "jazz"})
	b.Add(Entry{Timestamp: base.Add(time.Second), Level: "warn", Message: "track failed", Component: "transmission", StationID: "jazz"})
	b.Add(Entry{Timestamp: base.Add(2 * time.Second), Level: "info", Message: "now playing", Component: "station", StationID: "lofi",
		Fields: map[string]any{"title": "Blue Train"}})

	tests := []struct {
		name  string
		q     Query
		count int
		first string
	}{
		{"all", Query{}, 3, "now playing"},
		{"level", Query{Level: "warn"}, 1, "track failed"},
		{"station", Query{StationID: "jazz"}, 2, "now playing"},
		{"component", Query{Component: "transmission"}, 1, "track failed"},
		{"search message", Query{Search: "FAILED"}, 1, "track failed"},
		{"search fields", Query{Search: "blue"}, 1, "now playing"},
		{"since", Query{Since: base.Add(time.Second)}, 2, "track failed"},
		{"limit keeps newest", Query{Limit: 1}, 1, "now playing"},
		{"descending", Query{Descending: true, StationID: "jazz"}, 2, "track failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.Find(tt.q)
			if len(got) != tt.count {
				t.Fatalf("got %d entries, want %d", len(got), tt.count)
			}
			if got[0].Message != tt.first {
				t.Fatalf("first = %q, want %q", got[0].Message, tt.first)
			}
		})
	}

	if got := b.Find(Query{Limit: 1}); got[0].StationID != "lofi" {
		t.Fatalf("limit should keep the newest entry, got %+v", got[0])
	}
	if comps := b.Components("jazz"); len(comps) != 2 || comps[0] != "station" {
		t.Fatalf("components = %v", comps)
	}
}

func TestWriterCapturesZerolog(t *testing.T) {
	b := New(10)
	var fallback bytes.Buffer
	logger := zerolog.New(NewWriter(b, &fallback)).With().Timestamp().Logger()

	logger.Info().Str("component", "station").Str("station_id", "jazz").Str("title", "A").Msg("now playing")

	got := b.Entries()
	if len(got) != 1 {
		t.Fatalf("captured %d entries", len(got))
	}
	e := got[0]
	if e.Level != "info" || e.Message != "now playing" || e.Component != "station" || e.StationID != "jazz" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Fields["title"] != "A" {
		t.Fatalf("fields = %v", e.Fields)
	}
	if fallback.Len() == 0 {
		t.Fatal("fallback not written")
	}

	if _, err := NewWriter(b, nil).Write([]byte("not json")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if b.Len() != 1 {
		t.Fatal("non-JSON line captured")
	}
}
