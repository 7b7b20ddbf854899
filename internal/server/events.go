package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// EventDataset is sent whenever a new dataset is served
const EventDataset = "dataset"

// Event is a message pushed to websocket clients
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// safeConn serializes writes to a websocket connection
type safeConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *safeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *safeConn) Close() error {
	return c.conn.Close()
}

// hub tracks connected event clients
type hub struct {
	upgrader websocket.Upgrader
	clients  map[*safeConn]bool
	mu       sync.Mutex
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*safeConn]bool),
	}
}

func (h *hub) add(c *safeConn) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *hub) remove(c *safeConn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast sends ev to every client, dropping clients that fail
func (h *hub) broadcast(ev Event) {
	h.mu.Lock()
	clients := make([]*safeConn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.WriteJSON(ev); err != nil {
			log.Printf("Error sending %s event: %v", ev.Type, err)
			h.remove(c)
			c.Close()
		}
	}
}

// closeAll disconnects every client
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
}
