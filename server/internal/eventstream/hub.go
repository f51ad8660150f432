package eventstream

import (
	"context"
	"sync"

	"github.com/lanfleet/lanfleet/shared/types"
)

// Hub is the central pub/sub broker for WebSocket clients. It maintains the
// registry of connected clients and routes published messages to all clients
// subscribed to a given topic.
//
// # Design: single-writer event loop
//
// All mutations to the client registry (register, unregister) are serialised
// through a single goroutine — the Run loop — via channels, and Run takes mu
// for each mutation so that readers on other goroutines see a consistent
// map. Publish is one such reader: it holds a read-lock for the shortest
// possible time to copy the target set, then sends outside the lock to avoid
// blocking the event loop while waiting on slow client channels.
type Hub struct {
	clients map[*Client]struct{}
	topics  map[string]map[*Client]struct{}

	mu      sync.RWMutex
	dropped map[types.EventKind]int64

	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
}

// NewHub creates an idle Hub. Call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		topics:     make(map[string]map[*Client]struct{}),
		dropped:    make(map[types.EventKind]int64),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		stopped:    make(chan struct{}),
	}
}

// Run starts the hub's event loop. It must be called exactly once, in its
// own goroutine. It exits when ctx is cancelled (server graceful shutdown).
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			for _, topic := range client.topics {
				if h.topics[topic] == nil {
					h.topics[topic] = make(map[*Client]struct{})
				}
				h.topics[topic][client] = struct{}{}
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for _, topic := range client.topics {
					delete(h.topics[topic], client)
					if len(h.topics[topic]) == 0 {
						delete(h.topics, topic)
					}
				}
				close(client.send)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]struct{})
			h.topics = make(map[string]map[*Client]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// Publish sends msg to every client subscribed to topic that wants its kind.
// Safe to call from any goroutine — controller.Manager publishes from session
// goroutines. Clients whose send buffer is full are disconnected to prevent
// backpressure from a slow consumer blocking all other subscribers on the
// same topic; the kind responsible is counted in dropped rather than just
// discarded, so a saturated dashboard is visible via DroppedCounts instead
// of silently losing events.
func (h *Hub) Publish(topic string, msg Message) {
	h.mu.RLock()
	targets := h.topics[topic]
	var clients []*Client
	for c := range targets {
		if c.wants(msg.Kind) {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			h.mu.Lock()
			h.dropped[msg.Kind]++
			h.mu.Unlock()
			h.unregister <- c
		}
	}
}

// DroppedCounts returns, per EventKind, how many messages of that kind were
// dropped because a subscribed client's send buffer was saturated, so a
// wedged operator UI shows up as a count instead of a silent gap in the
// event stream. server/internal/metrics does not export these counts.
func (h *Hub) DroppedCounts() map[types.EventKind]int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[types.EventKind]int64, len(h.dropped))
	for k, v := range h.dropped {
		out[k] = v
	}
	return out
}

// Subscribe registers client with the hub and adds it to all its topics.
func (h *Hub) Subscribe(client *Client) {
	h.register <- client
}

// Unsubscribe removes client from the hub and all its topic subscriptions.
func (h *Hub) Unsubscribe(client *Client) {
	h.unregister <- client
}

// ConnectedCount returns the current number of connected WebSocket clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
