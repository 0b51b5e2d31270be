package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/friendsincode/stationloop/internal/transmission"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Environment != "development" || cfg.EventBus != EventBusMemory {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.HTTPAddr() != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr())
	}
	if cfg.AllowLocationRequests || cfg.RequestAllowedHosts != nil {
		t.Fatal("location requests should be off by default")
	}
}

func TestLoadReadsEnvKeys(t *testing.T) {
	t.Setenv("STATIONLOOP_HTTP_PORT", "9090")
	t.Setenv("STATIONLOOP_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("STATIONLOOP_EVENT_BUS", "NATS")
	t.Setenv("STATIONLOOP_S3_USE_PATH_STYLE", "yes")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("STATIONLOOP_ALLOW_LOCATION_REQUESTS", "true")
	t.Setenv("STATIONLOOP_REQUEST_ALLOWED_HOSTS", " cdn.example.com, ,jingles")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != 9090 || cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.EventBus != EventBusNATS {
		t.Fatalf("event bus = %q", cfg.EventBus)
	}
	if !cfg.S3UsePathStyle || cfg.S3Region != "eu-west-1" {
		t.Fatalf("S3 settings not read: %+v", cfg)
	}
	if !cfg.AllowLocationRequests || !slices.Equal(cfg.RequestAllowedHosts, []string{"cdn.example.com", "jingles"}) {
		t.Fatalf("request settings not read: %v %v", cfg.AllowLocationRequests, cfg.RequestAllowedHosts)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"event bus", map[string]string{"STATIONLOOP_EVENT_BUS": "kafka"}},
		{"port", map[string]string{"STATIONLOOP_HTTP_PORT": "70000"}},
		{"sample rate", map[string]string{"STATIONLOOP_TRACING_SAMPLE_RATE": "1.5"}},
		{"production without key", map[string]string{"STATIONLOOP_ENV": "production"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

const stationsYAML = `
stations:
  - id: jazz
    name: Jazz FM
    sink:
      type: icecast
      addr: localhost:8000
      password: hackme
    playlist:
      path: /music/jazz
    jingles:
      path: /music/jingles.m3u
    jingle_or_ad_chance: 0
    loop: false
  - id: lofi
    playlist:
      path: /music/lofi.m3u
`

func TestParseStations(t *testing.T) {
	stations, err := ParseStations(strings.NewReader(stationsYAML))
	if err != nil {
		t.Fatalf("ParseStations: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("got %d stations", len(stations))
	}

	jazz := stations[0]
	if jazz.Sink.Mount != "/jazz" || jazz.Sink.Bitrate != 128 {
		t.Fatalf("icecast defaults not applied: %+v", jazz.Sink)
	}
	if jazz.Looping() {
		t.Fatal("loop: false ignored")
	}
	tc := jazz.Transmission()
	if tc.JingleOrAdChance != 0 {
		t.Fatalf("explicit zero chance lost: %d", tc.JingleOrAdChance)
	}
	if tc.JingleChance != transmission.DefaultJingleChance {
		t.Fatalf("jingle chance = %d", tc.JingleChance)
	}

	lofi := stations[1]
	if lofi.Name != "lofi" || lofi.Sink.Type != SinkBroadcast {
		t.Fatalf("defaults not applied: %+v", lofi)
	}
	if !lofi.Looping() || !lofi.StartsAutomatically() {
		t.Fatal("expected looping autostart station")
	}
	if lofi.RequestQueueSize != DefaultRequestQueueSize {
		t.Fatalf("queue size = %d", lofi.RequestQueueSize)
	}
	if tc := lofi.Transmission(); tc.JingleOrAdChance != transmission.DefaultJingleOrAdChance {
		t.Fatalf("default chance = %d", tc.JingleOrAdChance)
	}
}

func TestParseStationsErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "no stations"},
		{"unknown field", "stations:\n  - id: a\n    colour: red\n", "colour"},
		{"bad id", "stations:\n  - id: Bad ID\n    playlist: {path: /m}\n", "id"},
		{"no playlist", "stations:\n  - id: a\n", "playlist"},
		{"icecast addr", "stations:\n  - id: a\n    playlist: {path: /m}\n    sink: {type: icecast}\n", "sink.addr"},
		{"sink type", "stations:\n  - id: a\n    playlist: {path: /m}\n    sink: {type: rtmp}\n", "sink type"},
		{"chance", "stations:\n  - id: a\n    playlist: {path: /m}\n    jingle_chance: 120\n", "jingle_chance"},
		{"duplicate", "stations:\n  - id: a\n    playlist: {path: /m}\n  - id: a\n    playlist: {path: /n}\n", "duplicate"},
		{"jingles type", "stations:\n  - id: a\n    playlist: {path: /m}\n    jingles: {path: /j, type: zip}\n", "jingles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStations(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadStationsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.yaml")
	if err := os.WriteFile(path, []byte(stationsYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	stations, err := LoadStations(path)
	if err != nil {
		t.Fatalf("LoadStations: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("got %d stations", len(stations))
	}

	if _, err := LoadStations(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
