package domain

import (
	"fmt"
	"sync"
)

// Hub holds the outbound channel of every live connection.
type Hub struct {
	mu       sync.RWMutex
	outboxes map[string]outbox
}

type outbox struct {
	ch    chan<- Event
	evict func()
}

func NewHub() *Hub {
	return &Hub{
		outboxes: make(map[string]outbox),
	}
}

// Register adds the connection's outbound channel. evict is called, possibly
// more than once, when the channel is full; it must not block.
func (h *Hub) Register(connectionID string, ch chan<- Event, evict func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.outboxes[connectionID]; exists {
		return fmt.Errorf("register %s: %w", connectionID, ErrAlreadyRegistered)
	}
	h.outboxes[connectionID] = outbox{ch: ch, evict: evict}
	return nil
}

// Unregister returns once no Send can still write to the connection's channel,
// so the caller may close it afterwards.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.outboxes, connectionID)
}

// Send enqueues event for connectionID without blocking. A connection
// whose channel is full is evicted.
func (h *Hub) Send(connectionID string, event Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out, exists := h.outboxes[connectionID]
	if !exists {
		return fmt.Errorf("send %s to %s: %w", event.Name, connectionID, ErrNotRegistered)
	}
	select {
	case out.ch <- event:
		return nil
	default:
		if out.evict != nil {
			out.evict()
		}
		return fmt.Errorf("send %s to %s: %w", event.Name, connectionID, ErrOutboxFull)
	}
}

func (h *Hub) IsRegistered(connectionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.outboxes[connectionID]
	return exists
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.outboxes)
}
