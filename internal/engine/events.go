package engine

import (
	"sync"
	"time"
)

// EventType tags the events published by the control loop.
type EventType string

const (
	EventFill      EventType = "fill"
	EventFlatten   EventType = "flatten"
	EventHalt      EventType = "halt"
	EventCelebrate EventType = "celebrate"
	EventSummary   EventType = "day_summary"
	EventState     EventType = "state"
)

// Event is one loop occurrence streamed to API subscribers.
type Event struct {
	Type    EventType `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Hub is a fan-out of loop events with per-subscriber buffered channels.
type Hub struct {
	mu        sync.Mutex
	nextSubID int
	subs      map[int]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Publish delivers the event to every subscriber with a non-blocking send.
// Slow subscribers drop events rather than stalling the loop.
func (h *Hub) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	h.mu.Lock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	h.mu.Unlock()
}

// Subscribe creates a subscription channel for loop events.
func (h *Hub) Subscribe(bufSize int) (id int, ch <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id = h.nextSubID
	h.nextSubID++
	c := make(chan Event, bufSize)
	h.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}
