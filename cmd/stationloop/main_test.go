package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeMedia(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{0}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSimulateIsReproducible(t *testing.T) {
	dir := t.TempDir()
	writeMedia(t, filepath.Join(dir, "music"), "a.mp3", "b.mp3", "c.mp3")
	writeMedia(t, filepath.Join(dir, "jingles"), "id.mp3")
	stations := filepath.Join(dir, "stations.yaml")
	doc := "stations:\n" +
		"  - id: jazz\n" +
		"    playlist: {path: " + filepath.Join(dir, "music") + "}\n" +
		"    jingles: {path: " + filepath.Join(dir, "jingles") + "}\n"
	if err := os.WriteFile(stations, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := execute(t, "simulate", "jazz", "--stations", stations, "--items", "8", "--seed", "42")
	if err != nil {
		t.Fatalf("simulate: %v\n%s", err, first)
	}
	lines := strings.Split(strings.TrimSpace(first), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected 8 items, got %d:\n%s", len(lines), first)
	}
	if !strings.Contains(lines[0], "track") {
		t.Fatalf("first item should be a track: %q", lines[0])
	}

	second, err := execute(t, "simulate", "jazz", "--stations", stations, "--items", "8", "--seed", "42")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if first != second {
		t.Fatalf("same seed, different schedule:\n%s\n---\n%s", first, second)
	}
}

func TestSimulateUnknownStation(t *testing.T) {
	dir := t.TempDir()
	writeMedia(t, filepath.Join(dir, "music"), "a.mp3")
	stations := filepath.Join(dir, "stations.yaml")
	doc := "stations:\n  - id: jazz\n    playlist: {path: " + filepath.Join(dir, "music") + "}\n"
	if err := os.WriteFile(stations, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "simulate", "rock", "--stations", stations); err == nil {
		t.Fatal("expected unknown station error")
	}
}

func TestInspectListsTracks(t *testing.T) {
	dir := t.TempDir()
	writeMedia(t, dir, "b.mp3", "a.mp3", "notes.txt")

	out, err := execute(t, "inspect", dir)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "2 tracks") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Index(out, "a.mp3") > strings.Index(out, "b.mp3") {
		t.Fatalf("tracks not sorted:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "stationloop ") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTokenRequiresSigningKey(t *testing.T) {
	t.Setenv("STATIONLOOP_JWT_SIGNING_KEY", "")
	if _, err := execute(t, "token"); err == nil {
		t.Fatal("expected error without signing key")
	}

	t.Setenv("STATIONLOOP_JWT_SIGNING_KEY", "k")
	out, err := execute(t, "token", "--subject", "ops", "--station", "jazz")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), ".") != 2 {
		t.Fatalf("not a JWT: %q", out)
	}
}
