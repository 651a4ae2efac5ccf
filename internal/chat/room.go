package chat

import (
	"sync"

	"github.com/dtroode/taskhub-server/internal/logger"
)

// Room is the membership set of one chat room.
// Join, Leave and Broadcast are safe for concurrent use.
type Room struct {
	Name string

	mu      sync.RWMutex
	members map[string]*Client
	logger  *logger.Logger
}

func newRoom(name string, logger *logger.Logger) *Room {
	return &Room{
		Name:    name,
		members: make(map[string]*Client),
		logger:  logger,
	}
}

func (r *Room) Join(c *Client) {
	r.mu.Lock()
	r.members[c.ID] = c
	r.mu.Unlock()

	r.logger.Debug("Chat room: member joined", "room", r.Name, "client_id", c.ID, "user_id", c.UserID)
}

// Leave removes the client and signals its shutdown. It returns the
// number of members left.
func (r *Room) Leave(clientID string) int {
	r.mu.Lock()
	c := r.members[clientID]
	delete(r.members, clientID)
	left := len(r.members)
	r.mu.Unlock()

	if c != nil {
		c.Close()
		r.logger.Debug("Chat room: member left", "room", r.Name, "client_id", clientID)
	}
	return left
}

// Broadcast fans ev out to every member. Members with a full queue miss
// the event.
func (r *Room) Broadcast(ev Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, m := range r.members {
		if m.offer(ev) {
			delivered++
			continue
		}
		r.logger.Warn("Chat room: dropped event", "room", r.Name, "client_id", m.ID)
	}
	return delivered
}

// Size returns the number of members.
func (r *Room) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
