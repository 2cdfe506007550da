package server

import (
	"encoding/json"
	"sync"
	"time"

	"sketch-party/internal/game"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const writeTimeout = 10 * time.Second

type client struct {
	id      game.ConnID
	conn    *websocket.Conn
	limiter *rate.Limiter
	writeMu sync.Mutex
}

func (c *client) send(msg outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// hub tracks live websocket clients by connection id. Room membership
// lives in the registry; the hub only maps ids to sockets.
type hub struct {
	mu      sync.RWMutex
	clients map[game.ConnID]*client
}

func newHub() *hub {
	return &hub{
		clients: make(map[game.ConnID]*client),
	}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *hub) remove(id game.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

func (h *hub) get(id game.ConnID) (*client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
}
