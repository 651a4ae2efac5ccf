package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/dtroode/taskhub-server/internal/apierror"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
	MaxMessageChars     = 4000
)

var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Chat persists room messages and serves their backlog.
type Chat struct {
	messages model.MessageStore
	now      func() time.Time
	logger   *logger.Logger
}

func NewChat(messages model.MessageStore, logger *logger.Logger) *Chat {
	return &Chat{messages: messages, now: time.Now, logger: logger}
}

// ValidRoom reports whether room is an acceptable room name.
func ValidRoom(room string) bool {
	return roomNamePattern.MatchString(room)
}

// Post stores a message from sender in room.
func (c *Chat) Post(ctx context.Context, room string, sender uuid.UUID, content string) (model.ChatMessage, error) {
	if !ValidRoom(room) {
		return model.ChatMessage{}, apierror.NewErrValidation(map[string]string{"room": "invalid room name"})
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return model.ChatMessage{}, apierror.NewErrValidation(map[string]string{"message": "must not be empty"})
	}
	if utf8.RuneCountInString(content) > MaxMessageChars {
		return model.ChatMessage{}, apierror.NewErrValidation(map[string]string{"message": fmt.Sprintf("must be at most %d characters", MaxMessageChars)})
	}

	now := c.now().UTC()
	msg, err := c.messages.Append(ctx, model.ChatMessage{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Room:      room,
		SenderID:  sender,
		Content:   content,
		CreatedAt: now,
	})
	if err != nil {
		c.logger.Error("Chat service: failed to append message",
			"room", room,
			"sender_id", sender,
			"error", err.Error())
		return model.ChatMessage{}, fmt.Errorf("failed to append message: %w", err)
	}

	return msg, nil
}

// History returns up to limit messages older than before, newest first,
// and whether more remain.
func (c *Chat) History(ctx context.Context, room, before string, limit int) ([]model.ChatMessage, bool, error) {
	if !ValidRoom(room) {
		return nil, false, apierror.NewErrValidation(map[string]string{"room": "invalid room name"})
	}
	if before != "" {
		if _, err := ulid.ParseStrict(before); err != nil {
			return nil, false, apierror.NewErrValidation(map[string]string{"before": "must be a message id"})
		}
	}

	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	msgs, err := c.messages.ListBefore(ctx, room, before, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list messages: %w", err)
	}

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	return msgs, hasMore, nil
}
