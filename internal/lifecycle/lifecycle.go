// Package lifecycle distributes application lifecycle events to
// interested components. The mobile clients report foreground
// transitions to the backend session endpoint, which publishes an
// AppActive event here so opportunistic work can run.
package lifecycle

import "sync"

type Event int

const (
	AppActive Event = iota
	AppBackground
)

// Hub fans events out to subscribers. Callbacks run on the publisher's
// goroutine; subscribers that need to do real work should hand off.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func NewHub() *Hub {
	return &Hub{subs: map[int]func(Event){}}
}

// Subscription cancels a single registration. Cancel is idempotent.
type Subscription struct {
	hub  *Hub
	id   int
	once sync.Once
}

func (s *Subscription) Cancel() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
	})
}

func (h *Hub) Subscribe(fn func(Event)) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.subs[id] = fn
	return &Subscription{hub: h, id: id}
}

func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	callbacks := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		callbacks = append(callbacks, fn)
	}
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(event)
	}
}
