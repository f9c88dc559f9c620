package realtime

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Event is one realtime push. Name maps to the SSE event field.
type Event struct {
	Name string
	Data interface{}
}

type client struct {
	ch       chan Event
	channels map[string]bool
}

// Hub is the in-process publish/subscribe registry behind the live event
// stream. Clients register a connection, then declare interest in issue
// channels; global events reach every connected client. Emitting to a
// channel nobody subscribed to is a silent no-op. The hub is an injected
// dependency bound at service start and closed at shutdown, never a
// package-level global.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
	log     *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     log,
	}
}

// Register attaches a new client connection and returns its event stream.
// Returns nil if the hub has already been closed.
func (h *Hub) Register(clientID string) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	c := &client{
		ch:       make(chan Event, 16),
		channels: make(map[string]bool),
	}
	h.clients[clientID] = c
	return c.ch
}

// Unregister detaches the client and closes its stream.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		delete(h.clients, clientID)
		close(c.ch)
	}
}

// Subscribe declares the client's interest in one channel. Unknown clients
// are ignored.
func (h *Hub) Subscribe(clientID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.channels[channel] = true
	}
}

// Unsubscribe removes the client's interest in one channel.
func (h *Hub) Unsubscribe(clientID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		delete(c.channels, channel)
	}
}

// EmitToChannel delivers the event to every client subscribed to channel.
func (h *Hub) EmitToChannel(channel, event string, data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		if c.channels[channel] {
			h.deliver(id, c, Event{Name: event, Data: data})
		}
	}
}

// EmitGlobal delivers the event to every connected client.
func (h *Hub) EmitGlobal(event string, data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		h.deliver(id, c, Event{Name: event, Data: data})
	}
}

// deliver is non-blocking: a client whose buffer is full loses the event
// rather than stalling the emit path.
func (h *Hub) deliver(id string, c *client, ev Event) {
	select {
	case c.ch <- ev:
	default:
		h.log.WithFields(logrus.Fields{"client": id, "event": ev.Name}).Warn("slow realtime client, dropping event")
	}
}

// Close detaches every client and rejects future registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.ch)
	}
}
