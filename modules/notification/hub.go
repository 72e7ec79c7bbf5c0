package notification

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/jaevor/go-nanoid"
)

// Frame is one message pushed to connected board clients.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// client is one connected board viewer.
type client struct {
	id   string
	conn *websocket.Conn
}

// recentLimit bounds the replay ring. Late joiners get at most this many of
// the latest frames before live traffic.
const recentLimit = 50

// Hub fans task change frames out to every connected board client. It is the
// outbound edge of the notification sink: writes are one-way and best-effort,
// a slow or broken socket is dropped rather than waited on.
type Hub struct {
	clients    map[string]*client
	register   chan *client
	unregister chan *client
	broadcast  chan Frame
	done       chan struct{}
	newID      func() string
	recent     []Frame
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	// nanoid.Standard only fails for sizes outside [2,255].
	newID, err := nanoid.Standard(21)
	if err != nil {
		panic(err)
	}
	return &Hub{
		clients:    make(map[string]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Frame, 256),
		done:       make(chan struct{}),
		newID:      newID,
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[notification] Hub shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case frame := <-h.broadcast:
			h.handleBroadcast(frame)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Serve owns one websocket connection for its lifetime. It registers the
// client, then reads (and discards) inbound frames until the peer goes away.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{id: h.newID(), conn: conn}
	h.register <- c
	defer func() {
		h.unregister <- c
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast queues a frame for every connected client. It never blocks the
// caller: when the queue is full the frame is dropped, because the mutation
// that produced it has already committed and must not be held up.
func (h *Hub) Broadcast(frameType string, payload any) {
	select {
	case h.broadcast <- Frame{Type: frameType, Payload: payload}:
	default:
		log.Printf("[notification] Dropping %s frame: broadcast queue full", frameType)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Recent returns a copy of the replay ring, oldest first.
func (h *Hub) Recent() []Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Frame, len(h.recent))
	copy(out, h.recent)
	return out
}

func (h *Hub) handleRegister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
	log.Printf("[notification] Client %s joined the board (%d connected)", c.id, len(h.clients))

	// Catch the new client up on recent changes before live traffic.
	for _, frame := range h.recent {
		data, err := json.Marshal(frame)
		if err != nil {
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[notification] Failed to replay to client %s: %v", c.id, err)
			return
		}
	}
}

func (h *Hub) handleUnregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		_ = c.conn.Close()
		log.Printf("[notification] Client %s left the board (%d connected)", c.id, len(h.clients))
	}
}

func (h *Hub) handleBroadcast(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.recent = append(h.recent, frame)
	if len(h.recent) > recentLimit {
		h.recent = h.recent[len(h.recent)-recentLimit:]
	}

	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[notification] Failed to marshal %s frame: %v", frame.Type, err)
		return
	}

	for _, c := range h.clients {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[notification] Failed to send to client %s: %v", c.id, err)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		_ = c.conn.Close()
	}
	h.clients = make(map[string]*client)
}
