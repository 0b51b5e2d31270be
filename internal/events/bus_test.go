package events

import (
	"testing"
	"time"
)

func TestBusDeliversToSubscribersOfType(t *testing.T) {
	bus := NewBus()
	np := bus.Subscribe(EventNowPlaying)
	other := bus.Subscribe(EventStreamEnded)

	bus.Publish(EventNowPlaying, Payload{"title": "A"})

	select {
	case p := <-np:
		if p["title"] != "A" {
			t.Fatalf("unexpected payload %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	select {
	case p := <-other:
		t.Fatalf("unrelated subscriber received %v", p)
	default:
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventNowPlaying)
	for i := 0; i < cap(sub)+10; i++ {
		bus.Publish(EventNowPlaying, Payload{"i": i})
	}
	if len(sub) != cap(sub) {
		t.Fatalf("expected full channel, len=%d cap=%d", len(sub), cap(sub))
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventNowPlaying)
	bus.Unsubscribe(EventNowPlaying, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel")
	}
	// Publishing after unsubscribe must not panic.
	bus.Publish(EventNowPlaying, Payload{})
	// Unknown subscribers are ignored.
	bus.Unsubscribe(EventNowPlaying, make(Subscriber))
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(EventNowPlaying)
	b := bus.Subscribe(EventListenerStats)
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, sub := range []Subscriber{a, b} {
		if _, ok := <-sub; ok {
			t.Fatal("expected closed channel")
		}
	}
}
