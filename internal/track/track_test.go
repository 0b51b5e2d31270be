package track

import (
	"testing"
	"time"
)

func TestNameFromLocation(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"/music/Daft_Punk-One_More_Time.mp3", "Daft Punk - One More Time"},
		{"plain.mp3", "plain"},
		{"/music/no_extension", "no extension"},
		{"/music/dotted.name.mp3", "dotted.name"},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			if got := NameFromLocation(tt.location); got != tt.want {
				t.Fatalf("NameFromLocation(%q) = %q, want %q", tt.location, got, tt.want)
			}
		})
	}
}

func TestNewAppliesOptions(t *testing.T) {
	tr := New("/music/a.mp3",
		WithName("  Song  "),
		WithArtist("Artist"),
		WithRequestedBy("dj_bob"),
		WithDuration(3*time.Minute),
	)

	if tr.Name != "Song" {
		t.Fatalf("unexpected name %q", tr.Name)
	}
	if tr.Artist != "Artist" {
		t.Fatalf("unexpected artist %q", tr.Artist)
	}
	if !tr.IsRequest() {
		t.Fatal("expected request")
	}
	if tr.Duration != 3*time.Minute {
		t.Fatalf("unexpected duration %v", tr.Duration)
	}
	if tr.ID == "" {
		t.Fatal("expected id")
	}
}

func TestNewDefaults(t *testing.T) {
	tr := New("/music/Some_Track.mp3")
	if tr.Name != "Some Track" {
		t.Fatalf("unexpected name %q", tr.Name)
	}
	if tr.IsRequest() {
		t.Fatal("expected non-request")
	}
	if tr.Duration != UnknownDuration {
		t.Fatalf("expected unknown duration, got %v", tr.Duration)
	}
	if tr.State() != Stopped {
		t.Fatalf("expected stopped, got %s", tr.State())
	}
}

func TestStateTransitions(t *testing.T) {
	tr := New("a.mp3")

	tr.Play()
	if !tr.IsPlaying() || tr.State().String() != "playing" {
		t.Fatalf("expected playing, got %s", tr.State())
	}
	tr.Pause()
	if tr.State() != Paused || tr.State().String() != "paused" {
		t.Fatalf("expected paused, got %s", tr.State())
	}
	tr.Stop()
	if tr.State() != Stopped {
		t.Fatalf("expected stopped, got %s", tr.State())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tr := New("a.mp3", WithArtist("x"))
	tr.Play()

	c := tr.Clone()
	if c == tr {
		t.Fatal("clone returned same pointer")
	}
	if c.Info != tr.Info {
		t.Fatalf("clone info mismatch: %+v vs %+v", c.Info, tr.Info)
	}
	if c.State() != Stopped {
		t.Fatalf("clone should start stopped, got %s", c.State())
	}

	c.Play()
	tr.Stop()
	if !c.IsPlaying() {
		t.Fatal("clone state should not follow original")
	}
}
