package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

type fakeS3 struct {
	objects map[string]string
	bucket  string
	key     string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestFilesystemOpen(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := NewFilesystem(dir)
	rc, err := fs.Open(context.Background(), "a.mp3")
	if err != nil {
		t.Fatalf("Open relative: %v", err)
	}
	if got := readAll(t, rc); got != "audio" {
		t.Fatalf("got %q", got)
	}

	rc, err = fs.Open(context.Background(), filepath.Join(dir, "a.mp3"))
	if err != nil {
		t.Fatalf("Open absolute: %v", err)
	}
	rc.Close()

	if _, err := fs.Open(context.Background(), "missing.mp3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseS3Location(t *testing.T) {
	tests := []struct {
		in      string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://music/rock/a.mp3", "music", "rock/a.mp3", false},
		{"s3://music/", "", "", true},
		{"s3://music", "", "", true},
		{"http://music/a.mp3", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, key, err := ParseS3Location(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Fatalf("got %q %q", bucket, key)
			}
		})
	}
}

func TestS3Open(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"music/rock/a.mp3": "bytes"}}
	store := NewS3WithClient(client)

	rc, err := store.Open(context.Background(), "s3://music/rock/a.mp3")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := readAll(t, rc); got != "bytes" {
		t.Fatalf("got %q", got)
	}
	if client.bucket != "music" || client.key != "rock/a.mp3" {
		t.Fatalf("requested %s/%s", client.bucket, client.key)
	}

	if _, err := store.Open(context.Background(), "s3://music/missing.mp3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.mp3":
			_, _ = w.Write([]byte("remote"))
		case "/broken.mp3":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := NewHTTP(0)
	rc, err := h.Open(context.Background(), srv.URL+"/a.mp3")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := readAll(t, rc); got != "remote" {
		t.Fatalf("got %q", got)
	}

	if _, err := h.Open(context.Background(), srv.URL+"/nope.mp3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := h.Open(context.Background(), srv.URL+"/broken.mp3"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestRouterDispatch(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "local.mp3"), []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("web"))
	}))
	defer srv.Close()

	r := NewRouter(
		NewFilesystem(dir),
		NewS3WithClient(&fakeS3{objects: map[string]string{"b/k.mp3": "object"}}),
		NewHTTP(0),
		zerolog.Nop(),
	)

	tests := []struct {
		location string
		want     string
	}{
		{"local.mp3", "local"},
		{"file://" + filepath.Join(dir, "local.mp3"), "local"},
		{"s3://b/k.mp3", "object"},
		{srv.URL + "/x.mp3", "web"},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			rc, err := r.Open(context.Background(), tt.location)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if got := readAll(t, rc); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}

	if _, err := r.Open(context.Background(), "ftp://host/a.mp3"); err == nil {
		t.Fatal("expected unsupported scheme error")
	}

	bare := NewRouter(nil, nil, nil, zerolog.Nop())
	if _, err := bare.Open(context.Background(), "s3://b/k.mp3"); err == nil {
		t.Fatal("expected error without s3 backend")
	}
}

func TestLocationPolicyResolve(t *testing.T) {
	root := t.TempDir()
	p := LocationPolicy{Root: root, AllowedHosts: []string{"cdn.example.com", "jingles"}}

	tests := []struct {
		name     string
		location string
		want     string
	}{
		{"relative", "requests/a.mp3", filepath.Join(root, "requests", "a.mp3")},
		{"cleaned", "requests/../b.mp3", filepath.Join(root, "b.mp3")},
		{"allowed host", "https://CDN.example.com/a.mp3", "https://CDN.example.com/a.mp3"},
		{"allowed bucket", "s3://jingles/x.mp3", "s3://jingles/x.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Resolve(tt.location)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}

	rejected := []string{
		"/etc/passwd",
		"../secret.mp3",
		"a/../../secret.mp3",
		"",
		"file:///etc/passwd",
		"http://169.254.169.254/latest/meta-data",
		"http://cdn.example.com@internal/a.mp3",
		"s3://other-bucket/a.mp3",
		"gopher://cdn.example.com/a",
	}
	for _, loc := range rejected {
		if _, err := p.Resolve(loc); !errors.Is(err, ErrLocationNotAllowed) {
			t.Errorf("Resolve(%q) err = %v, want ErrLocationNotAllowed", loc, err)
		}
	}

	if _, err := (LocationPolicy{}).Resolve("a.mp3"); !errors.Is(err, ErrLocationNotAllowed) {
		t.Fatalf("local request without a root: %v", err)
	}
}
