package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	rid := "r1"
	ch := b.Subscribe(rid)

	evt := Event{Type: "telemetry_update", Data: map[string]any{"wave_height": 2.5}}
	b.Publish(rid, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["wave_height"].(float64) != 2.5 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(rid, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		// acceptable if already drained and closed
	}
}

func TestBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	b := NewBroker()
	rid := "r2"
	ch := b.Subscribe(rid)

	// channel buffer is 8; publishing more must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			b.Publish(rid, Event{Type: "route_update", Data: map[string]any{"i": i}})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	b.Unsubscribe(rid, ch)
}

func TestBrokerIsolatesRoutes(t *testing.T) {
	b := NewBroker()
	chA := b.Subscribe("a")
	chB := b.Subscribe("b")
	defer b.Unsubscribe("a", chA)
	defer b.Unsubscribe("b", chB)

	b.Publish("a", Event{Type: "route_update"})
	select {
	case <-chB:
		t.Fatal("event for route a leaked to route b")
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case <-chA:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("subscriber on route a got nothing")
	}
}
