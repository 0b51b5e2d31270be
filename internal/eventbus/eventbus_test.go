package eventbus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/stationloop/internal/events"
)

type recorder struct {
	types    []events.EventType
	payloads []events.Payload
}

func (r *recorder) Publish(eventType events.EventType, payload events.Payload) {
	r.types = append(r.types, eventType)
	r.payloads = append(r.payloads, payload)
}

func TestMarshalMessage(t *testing.T) {
	data, err := marshalMessage(events.EventNowPlaying, events.Payload{"title": "A"}, "node-a")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["event_type"] != "now_playing" || raw["node_id"] != "node-a" {
		t.Fatalf("unexpected message %v", raw)
	}
	if id, _ := raw["message_id"].(string); id == "" {
		t.Fatal("expected message id")
	}
}

func TestUnmarshalRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "not json", `{"payload":{}}`} {
		if _, err := unmarshalMessage([]byte(in)); err == nil {
			t.Errorf("unmarshal %q: expected error", in)
		}
	}
}

func TestDeliverRemoteDropsEcho(t *testing.T) {
	data, _ := marshalMessage(events.EventNowPlaying, events.Payload{"title": "A"}, "self")
	rec := &recorder{}
	if err := deliverRemote(rec, "self", data); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(rec.types) != 0 {
		t.Fatalf("own message delivered: %v", rec.types)
	}
}

func TestDeliverRemoteTagsSource(t *testing.T) {
	data, _ := marshalMessage(events.EventStreamEnded, nil, "other")
	rec := &recorder{}
	if err := deliverRemote(rec, "self", data); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(rec.types) != 1 || rec.types[0] != events.EventStreamEnded {
		t.Fatalf("unexpected deliveries %v", rec.types)
	}
	if rec.payloads[0]["source_node"] != "other" {
		t.Fatalf("missing source node: %v", rec.payloads[0])
	}
}

func TestSubject(t *testing.T) {
	if got := subject(events.EventTrackFailed); got != "stationloop.events.track_failed" {
		t.Fatalf("subject = %q", got)
	}
}

func expectLocal(t *testing.T, b events.Broker) {
	t.Helper()
	sub := b.Subscribe(events.EventNowPlaying)
	b.Publish(events.EventNowPlaying, events.Payload{"title": "A"})
	select {
	case p := <-sub:
		if p["title"] != "A" {
			t.Fatalf("unexpected payload %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("local subscriber did not receive event")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-sub; ok {
		t.Fatal("expected subscriber closed")
	}
}

func TestRedisFallbackStillDeliversLocally(t *testing.T) {
	cfg := DefaultRedisConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.DialTimeout = 200 * time.Millisecond

	rb := NewRedisBus(cfg, "", zerolog.Nop())
	if !rb.Fallback() {
		t.Fatal("expected fallback mode")
	}
	expectLocal(t, rb)
}

func TestRedisFailureThreshold(t *testing.T) {
	rb := &RedisBus{logger: zerolog.Nop(), maxFails: 2}
	rb.handleFailure()
	if rb.Fallback() {
		t.Fatal("tripped too early")
	}
	rb.handleFailure()
	if !rb.Fallback() {
		t.Fatal("expected breaker to trip")
	}
}

func TestNATSFallbackStillDeliversLocally(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.Timeout = 200 * time.Millisecond

	nb := NewNATSBus(cfg, "", zerolog.Nop())
	if !nb.Fallback() {
		t.Fatal("expected fallback mode")
	}
	expectLocal(t, nb)
}
