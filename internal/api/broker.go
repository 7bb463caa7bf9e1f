package api

import (
	"sync"
)

// Event is one message fanned out to route watchers over WebSocket.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Broker is the in-process fanout used when no REDIS_URL is configured.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // routeID -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(routeID string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	if b.subs[routeID] == nil {
		b.subs[routeID] = map[chan Event]struct{}{}
	}
	b.subs[routeID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(routeID string, ch chan Event) {
	b.mu.Lock()
	if m := b.subs[routeID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, routeID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(routeID string, evt Event) {
	b.mu.Lock()
	m := b.subs[routeID]
	for ch := range m {
		// drop rather than block a slow consumer
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
