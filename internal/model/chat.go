package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageStore persists chat messages keyed by room.
type MessageStore interface {
	Append(ctx context.Context, msg ChatMessage) (ChatMessage, error)
	ListBefore(ctx context.Context, room string, before string, limit int) ([]ChatMessage, error)
}

// ChatMessage is a persisted room message. ID is a ULID so that
// lexical order matches creation order.
type ChatMessage struct {
	ID        string
	Room      string
	SenderID  uuid.UUID
	Content   string
	CreatedAt time.Time
}
