package postgres

import (
	"context"
	"fmt"

	"github.com/dtroode/taskhub-server/internal/model"
)

var _ model.MessageStore = (*MessageRepository)(nil)

type MessageRepository struct {
	db *Connection
}

func NewMessageRepository(db *Connection) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Append(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error) {
	const query = `
        INSERT INTO chat_messages (id, room, sender_id, content, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, room, sender_id, content, created_at
    `
	var saved model.ChatMessage
	err := r.db.executor(ctx).QueryRowContext(ctx, query, msg.ID, msg.Room, msg.SenderID, msg.Content, msg.CreatedAt).Scan(
		&saved.ID, &saved.Room, &saved.SenderID, &saved.Content, &saved.CreatedAt,
	)
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("failed to append chat message: %w", err)
	}
	return saved, nil
}

// ListBefore returns up to limit messages of room, newest first. An empty
// before starts from the newest message.
func (r *MessageRepository) ListBefore(ctx context.Context, room string, before string, limit int) ([]model.ChatMessage, error) {
	const query = `
        SELECT id, room, sender_id, content, created_at
        FROM chat_messages
        WHERE room = $1 AND ($2 = '' OR id < $2)
        ORDER BY id DESC
        LIMIT $3
    `
	rows, err := r.db.executor(ctx).QueryContext(ctx, query, room, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]model.ChatMessage, 0, limit)
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.Room, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}
	return msgs, nil
}
