// Package chat fans realtime room messages out to websocket clients.
package chat

import (
	"sync"

	"github.com/dtroode/taskhub-server/internal/logger"
)

// Hub owns the in-memory rooms. Persistence lives behind the poster
// given to the Gateway.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	logger *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]*Room),
		logger: logger,
	}
}

// Join adds c to the named room, creating the room on first use.
func (h *Hub) Join(name string, c *Client) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[name]
	if !ok {
		r = newRoom(name, h.logger)
		h.rooms[name] = r
	}
	r.Join(c)
	return r
}

// Leave removes the client from the named room and drops the room once
// it is empty.
func (h *Hub) Leave(name, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[name]
	if !ok {
		return
	}
	if r.Leave(clientID) == 0 {
		delete(h.rooms, name)
	}
}

// Broadcast delivers ev to the members of the named room.
func (h *Hub) Broadcast(name string, ev Event) int {
	h.mu.RLock()
	r, ok := h.rooms[name]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	return r.Broadcast(ev)
}

// Members returns the number of clients in the named room.
func (h *Hub) Members(name string) int {
	h.mu.RLock()
	r, ok := h.rooms[name]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	return r.Size()
}
