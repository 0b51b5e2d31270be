/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logbuffer keeps the most recent structured log entries in memory
// so the control API can show a station's recent history.
package logbuffer

import (
	"encoding/json"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is one decoded zerolog line.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	StationID string         `json:"station_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Buffer is a fixed-size ring of entries, safe for concurrent use.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	count   int
}

// New creates a buffer holding up to capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Buffer{entries: make([]Entry, capacity)}
}

// Add appends an entry, evicting the oldest when full.
func (b *Buffer) Add(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.head] = entry
	b.head = (b.head + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
}

// Entries returns everything held, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Entry, b.count)
	start := 0
	if b.count == len(b.entries) {
		start = b.head
	}
	for i := range out {
		out[i] = b.entries[(start+i)%len(b.entries)]
	}
	return out
}

// Len reports how many entries are held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Query filters entries.
type Query struct {
	Level      string    // Exact level (debug, info, warn, error)
	Component  string    // Exact component
	StationID  string    // Exact station_id field
	Search     string    // Case-insensitive match in message, component or string fields
	Since      time.Time // Only entries at or after this time
	Limit      int       // Max entries to return (0 = all)
	Descending bool      // Newest first
}

func (q Query) match(e Entry) bool {
	if q.Level != "" && e.Level != q.Level {
		return false
	}
	if q.Component != "" && e.Component != q.Component {
		return false
	}
	if q.StationID != "" && e.StationID != q.StationID {
		return false
	}
	if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
		return false
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	if strings.Contains(strings.ToLower(e.Message), needle) || strings.Contains(strings.ToLower(e.Component), needle) {
		return true
	}
	for _, v := range e.Fields {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// Find returns the entries matching q. Limit keeps the newest matches.
func (b *Buffer) Find(q Query) []Entry {
	var out []Entry
	for _, e := range b.Entries() {
		if q.match(e) {
			out = append(out, e)
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	if q.Descending {
		slices.Reverse(out)
	}
	return out
}

// Components lists the distinct components logged for a station, or for
// all stations when stationID is empty.
func (b *Buffer) Components(stationID string) []string {
	seen := make(map[string]bool)
	for _, e := range b.Entries() {
		if stationID != "" && e.StationID != stationID {
			continue
		}
		if e.Component != "" {
			seen[e.Component] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Writer feeds JSON log lines into a buffer, for use with
// zerolog.MultiLevelWriter.
type Writer struct {
	buffer   *Buffer
	fallback io.Writer
}

// NewWriter creates a writer; fallback may be nil.
func NewWriter(buffer *Buffer, fallback io.Writer) *Writer {
	return &Writer{buffer: buffer, fallback: fallback}
}

// Write implements io.Writer. Lines that are not JSON objects are only
// passed on to the fallback.
func (w *Writer) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err == nil {
		w.buffer.Add(decode(raw))
	}
	if w.fallback != nil {
		return w.fallback.Write(p)
	}
	return len(p), nil
}

func decode(raw map[string]any) Entry {
	e := Entry{Timestamp: time.Now()}
	take := func(key string) string {
		s, _ := raw[key].(string)
		delete(raw, key)
		return s
	}
	e.Level = take("level")
	e.Message = take("message")
	e.Component = take("component")
	e.StationID = take("station_id")

	switch ts := raw["time"].(type) {
	case float64:
		e.Timestamp = time.Unix(int64(ts), 0)
	case string:
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t
		}
	}
	delete(raw, "time")

	if len(raw) > 0 {
		e.Fields = raw
	}
	return e
}
