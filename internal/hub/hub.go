// Package hub fans controller state out to websocket viewers.
package hub

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Hub manages WebSocket clients and broadcasts messages.
type Hub struct {
	clients    map[*Client]bool
	register   chan registration
	unregister chan *Client
	mu         sync.RWMutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan registration),
		unregister: make(chan *Client),
		log:        log,
	}
}

type registration struct {
	client *Client
	done   chan struct{}
}

// Register adds a new client to the hub. It returns once the client
// receives broadcasts.
func (h *Hub) Register(c *Client) {
	r := registration{client: c, done: make(chan struct{})}
	h.register <- r
	<-r.done
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastTo sends a message to every client watching controller id,
// including clients that watch all controllers.
func (h *Hub) BroadcastTo(msg []byte, id int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.Watches(id) {
			continue
		}
		select {
		case client.send <- msg:
		default:
			// Client send buffer full, disconnect
			go h.Unregister(client)
		}
	}
}

// SendTo queues msg for a single registered client without blocking. It
// reports false when the client is gone or its buffer is full.
func (h *Hub) SendTo(c *Client, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[c] {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Run starts the hub's main loop until ctx is cancelled. Remaining clients
// are closed on return.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case r := <-h.register:
			h.mu.Lock()
			h.clients[r.client] = true
			n := len(h.clients)
			h.mu.Unlock()
			close(r.done)
			h.log.Info("client connected", zap.Int("total", n))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client disconnected", zap.Int("total", n))

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.drain()
			return
		}
	}
}

// drain releases pumps still blocked in Register or Unregister after Run
// has stopped.
func (h *Hub) drain() {
	go func() {
		for {
			select {
			case r := <-h.register:
				close(r.client.send)
				close(r.done)
			case <-h.unregister:
			}
		}
	}()
}
