package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/teslashibe/nova-guide/internal/log"
)

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	name   string
	logger *slog.Logger

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// last is replayed to clients as they connect.
	lastMu sync.RWMutex
	last   *Message

	mu    sync.RWMutex
	count int
}

// New creates a hub. Nothing is delivered until Run is started.
func New(name string, logger *slog.Logger) *Hub {
	return &Hub{
		name:       name,
		logger:     log.OrDefault(logger, "hub").With("hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub loop. It fits worker.Func: it returns when stop is
// closed or ctx is done, disconnecting every client.
func (h *Hub) Run(ctx context.Context, stop <-chan struct{}) error {
	defer func() {
		close(h.done)
		for c := range h.clients {
			h.remove(c)
		}
	}()

	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()

		case c := <-h.register:
			h.clients[c] = true
			h.setCount()
			if m := h.Last(); m != nil {
				c.send <- *m
			}
			h.logger.Info("client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				h.remove(c)
				h.logger.Info("client disconnected", "clients", len(h.clients))
			}

		case m := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- m:
				default:
					h.remove(c)
					h.logger.Warn("dropped slow client")
				}
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// Broadcast queues msg for every client. It never blocks; when the queue
// is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	h.lastMu.Lock()
	h.last = &msg
	h.lastMu.Unlock()

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Message{Data: data})
	return nil
}

// Last returns the most recent broadcast, or nil.
func (h *Hub) Last() *Message {
	h.lastMu.RLock()
	defer h.lastMu.RUnlock()
	return h.last
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
