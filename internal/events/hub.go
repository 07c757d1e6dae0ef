package events

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChangeEvent signals that the store gained a row. Subscribers fetch the
// last row at their own trigger time, so a positionally superseded row is
// still self-consistent.
type ChangeEvent struct {
	EventID   string    `json:"event_id"`
	Row       int       `json:"row"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans store-change events out to subscribers. Publishing never blocks:
// a subscriber with a full channel just misses the event, which is
// acceptable because handlers re-read the last row anyway.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan ChangeEvent]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan ChangeEvent]bool),
	}
}

// Subscribe registers a new listener and returns its channel.
func (h *Hub) Subscribe() chan ChangeEvent {
	ch := make(chan ChangeEvent, 16)
	h.mu.Lock()
	h.subscribers[ch] = true
	h.mu.Unlock()
	log.Printf("[Hub] Subscriber registered (total: %d)", h.count())
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (h *Hub) Unsubscribe(ch chan ChangeEvent) {
	h.mu.Lock()
	if h.subscribers[ch] {
		delete(h.subscribers, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// RowAppended publishes a change event for the given row index.
// Implements ports.ChangePublisher.
func (h *Hub) RowAppended(row int) {
	event := ChangeEvent{
		EventID:   uuid.NewString(),
		Row:       row,
		Timestamp: time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			log.Printf("[Hub] Subscriber channel full, dropping event %s", event.EventID)
		}
	}
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
