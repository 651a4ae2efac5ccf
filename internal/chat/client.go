package chat

import (
	"sync"

	"github.com/google/uuid"
)

// Client is one connected websocket session.
// Send is never closed by the server; done signals shutdown.
type Client struct {
	ID     string
	UserID uuid.UUID
	Send   chan Event

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(id string, userID uuid.UUID, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}
	return &Client{
		ID:     id,
		UserID: userID,
		Send:   make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
}

// Done is closed once the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close is idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// offer enqueues ev without blocking and reports whether it was accepted.
func (c *Client) offer(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Send <- ev:
		return true
	default:
		return false
	}
}
