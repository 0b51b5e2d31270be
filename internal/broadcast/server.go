/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package broadcast serves station audio directly to HTTP listeners, with a
// ring buffer for quick start and optional ICY in-band titles.
package broadcast

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/stationloop/internal/events"
	"github.com/friendsincode/stationloop/internal/telemetry"
)

// Mount is one listener-facing stream.
type Mount struct {
	Name        string
	ContentType string
	Bitrate     int
	MetaInt     int

	mu      sync.RWMutex
	clients map[*client]struct{}
	title   string

	buffer *ringBuffer
	logger zerolog.Logger
	bus    events.Publisher
}

type client struct {
	ch     chan []byte
	mu     sync.Mutex
	closed bool
}

// offer queues chunk unless the listener is gone or too far behind.
func (c *client) offer(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- chunk:
	default:
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// ringBuffer keeps the newest len(data) bytes written.
type ringBuffer struct {
	mu   sync.RWMutex
	data []byte
	next int  // write offset
	full bool // data has wrapped at least once
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{data: make([]byte, size)}
}

func (rb *ringBuffer) Write(p []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if len(p) >= len(rb.data) {
		copy(rb.data, p[len(p)-len(rb.data):])
		rb.next, rb.full = 0, true
		return
	}
	n := copy(rb.data[rb.next:], p)
	if n < len(p) {
		copy(rb.data, p[n:])
		rb.full = true
	}
	rb.next = (rb.next + len(p)) % len(rb.data)
	if rb.next == 0 {
		rb.full = true
	}
}

// Recent returns up to n of the newest bytes, oldest first.
func (rb *ringBuffer) Recent(n int) []byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	avail := rb.next
	if rb.full {
		avail = len(rb.data)
	}
	n = min(n, avail)
	out := make([]byte, 0, n)
	start := rb.next - n
	if start < 0 {
		out = append(out, rb.data[len(rb.data)+start:]...)
		start = 0
	}
	return append(out, rb.data[start:rb.next]...)
}

// NewMount creates a mount. bus may be nil.
func NewMount(name, contentType string, bitrate, metaInt int, logger zerolog.Logger, bus events.Publisher) *Mount {
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	if metaInt <= 0 {
		metaInt = DefaultMetaInt
	}
	// Five seconds at the stream bitrate, never under 20KB.
	bufferSize := max((bitrate*1000/8)*5, 20000)

	return &Mount{
		Name:        name,
		ContentType: contentType,
		Bitrate:     bitrate,
		MetaInt:     metaInt,
		clients:     make(map[*client]struct{}),
		buffer:      newRingBuffer(bufferSize),
		logger:      logger.With().Str("mount", name).Logger(),
		bus:         bus,
	}
}

// Broadcast fans data out to every listener. Slow listeners drop chunks.
func (m *Mount) Broadcast(data []byte) {
	if len(data) == 0 {
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	m.buffer.Write(chunk)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for c := range m.clients {
		c.offer(chunk)
	}
}

// SetTitle sets the title sent to ICY-aware listeners.
func (m *Mount) SetTitle(title string) {
	m.mu.Lock()
	m.title = title
	m.mu.Unlock()
}

func (m *Mount) Title() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.title
}

// ServeHTTP streams to one listener until it disconnects or the mount closes.
func (m *Mount) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wantsMeta := r.Header.Get("Icy-MetaData") == "1"

	h := w.Header()
	h.Set("Content-Type", m.ContentType)
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("X-Accel-Buffering", "no")
	h.Set("icy-br", strconv.Itoa(m.Bitrate))
	h.Set("icy-name", m.Name)
	if wantsMeta {
		h.Set("icy-metaint", strconv.Itoa(m.MetaInt))
	}
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	var out io.Writer = w
	if wantsMeta {
		out = newICYWriter(w, m.MetaInt, m.Title)
	}
	writeAndFlush := func(data []byte) error {
		if _, err := out.Write(data); err != nil {
			return err
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	}

	c := &client{ch: make(chan []byte, 256)}
	m.mu.Lock()
	m.clients[c] = struct{}{}
	count := len(m.clients)
	m.mu.Unlock()

	m.logger.Info().Int("clients", count).Bool("icy", wantsMeta).Msg("listener connected")
	m.publishListenerStats(count, "connect")

	defer func() {
		c.close()

		m.mu.Lock()
		delete(m.clients, c)
		count := len(m.clients)
		m.mu.Unlock()

		m.logger.Info().Int("clients", count).Msg("listener disconnected")
		m.publishListenerStats(count, "disconnect")
	}()

	// Two seconds of audio, between 8KB and 64KB.
	primeBytes := (m.Bitrate * 1000 / 8) * 2
	primeBytes = min(max(primeBytes, 8000), 64000)
	if recent := m.buffer.Recent(primeBytes); len(recent) > 0 {
		if err := writeAndFlush(recent); err != nil {
			m.logger.Debug().Err(err).Msg("initial buffer write failed")
			return
		}
	}

	keepalive := time.NewTimer(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-c.ch:
			if !ok {
				return
			}
			if err := writeAndFlush(data); err != nil {
				m.logger.Debug().Err(err).Msg("write failed, dropping listener")
				return
			}
			if !keepalive.Stop() {
				select {
				case <-keepalive.C:
				default:
				}
			}
			keepalive.Reset(30 * time.Second)
		case <-keepalive.C:
			_ = rc.Flush()
			keepalive.Reset(30 * time.Second)
		}
	}
}

// ClientCount returns the number of connected listeners.
func (m *Mount) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Mount) publishListenerStats(count int, kind string) {
	telemetry.Listeners.WithLabelValues(m.Name).Set(float64(count))
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.EventListenerStats, events.Payload{
		"mount":        m.Name,
		"bitrate":      m.Bitrate,
		"listeners":    count,
		"event":        kind,
		"content_type": m.ContentType,
	})
}

// Close disconnects every listener.
func (m *Mount) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for c := range m.clients {
		c.close()
	}
	m.clients = make(map[*client]struct{})
}

// Server is the registry of mounts, one per station.
type Server struct {
	mounts map[string]*Mount
	mu     sync.RWMutex
	logger zerolog.Logger
	bus    events.Publisher
}

func NewServer(logger zerolog.Logger, bus events.Publisher) *Server {
	return &Server{
		mounts: make(map[string]*Mount),
		logger: logger.With().Str("component", "broadcast").Logger(),
		bus:    bus,
	}
}

// CreateMount registers a mount, replacing any previous one with that name.
func (s *Server) CreateMount(name, contentType string, bitrate, metaInt int) *Mount {
	mount := NewMount(name, contentType, bitrate, metaInt, s.logger, s.bus)

	s.mu.Lock()
	old := s.mounts[name]
	s.mounts[name] = mount
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return mount
}

func (s *Server) GetMount(name string) *Mount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mounts[name]
}

func (s *Server) RemoveMount(name string) {
	s.mu.Lock()
	mount, ok := s.mounts[name]
	delete(s.mounts, name)
	s.mu.Unlock()
	if ok {
		mount.Close()
	}
}

// MountStats contains listener statistics for a mount.
type MountStats struct {
	Name        string `json:"name"`
	Bitrate     int    `json:"bitrate"`
	ContentType string `json:"content_type"`
	Listeners   int    `json:"listeners"`
	Title       string `json:"title"`
}

func (s *Server) ListenerStats() []MountStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]MountStats, 0, len(s.mounts))
	for _, mount := range s.mounts {
		stats = append(stats, MountStats{
			Name:        mount.Name,
			Bitrate:     mount.Bitrate,
			ContentType: mount.ContentType,
			Listeners:   mount.ClientCount(),
			Title:       mount.Title(),
		})
	}
	return stats
}

func (s *Server) TotalListeners() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, mount := range s.mounts {
		total += mount.ClientCount()
	}
	return total
}

// ServeHTTP routes /<mount> to the mount.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")
	mount := s.GetMount(name)
	if mount == nil {
		http.Error(w, "mount not found", http.StatusNotFound)
		return
	}
	mount.ServeHTTP(w, r)
}

// Close ends every mount and disconnects its listeners.
func (s *Server) Close() {
	s.mu.Lock()
	mounts := s.mounts
	s.mounts = make(map[string]*Mount)
	s.mu.Unlock()
	for _, mount := range mounts {
		mount.Close()
	}
}
