/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventNowPlaying     EventType = "now_playing"
	EventInterstitial   EventType = "interstitial"
	EventAnnouncement   EventType = "announcement"
	EventRequestQueued  EventType = "request_queued"
	EventRequestPlayed  EventType = "request_played"
	EventStreamStarted  EventType = "stream_started"
	EventStreamEnded    EventType = "stream_ended"
	EventTrackFailed    EventType = "track_failed"
	EventListenerStats  EventType = "listener_stats"
	EventStationError   EventType = "station_error"
	EventStationStopped EventType = "station_stopped"
)

// AllTypes lists every event type, for consumers that want the full feed.
var AllTypes = []EventType{
	EventNowPlaying,
	EventInterstitial,
	EventAnnouncement,
	EventRequestQueued,
	EventRequestPlayed,
	EventStreamStarted,
	EventStreamEnded,
	EventTrackFailed,
	EventListenerStats,
	EventStationError,
	EventStationStopped,
}

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Publisher is anything events can be sent to.
type Publisher interface {
	Publish(eventType EventType, payload Payload)
}

// Broker is a full pub/sub implementation: the in-process Bus or one of the
// networked buses in package eventbus.
type Broker interface {
	Publisher
	Subscribe(eventType EventType) Subscriber
	Unsubscribe(eventType EventType, sub Subscriber)
	Close() error
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 32)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Full subscribers miss the event.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes and closes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			b.subs[eventType] = append(subs[:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes every subscriber.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, subs := range b.subs {
		for _, sub := range subs {
			close(sub)
		}
		delete(b.subs, t)
	}
	return nil
}
