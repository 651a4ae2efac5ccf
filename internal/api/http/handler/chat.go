package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/apierror"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
)

// ChatService serves room backlogs.
type ChatService interface {
	History(ctx context.Context, room, before string, limit int) ([]model.ChatMessage, bool, error)
}

type messageResponse struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Sender    uuid.UUID `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	Messages []messageResponse `json:"messages"`
	HasMore  bool              `json:"has_more"`
}

// Chat serves room history.
type Chat struct {
	chatService ChatService
	logger      *logger.Logger
}

func NewChat(chatService ChatService, logger *logger.Logger) *Chat {
	return &Chat{chatService: chatService, logger: logger}
}

// History handles GET /rooms/{room}/messages?before=&limit=.
func (h *Chat) History(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, h.logger, apierror.NewErrValidation(map[string]string{"limit": "must be a non-negative integer"}))
			return
		}
		limit = n
	}

	msgs, hasMore, err := h.chatService.History(r.Context(), room, q.Get("before"), limit)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	resp := historyResponse{Messages: make([]messageResponse, 0, len(msgs)), HasMore: hasMore}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, messageResponse{
			ID:        m.ID,
			Room:      m.Room,
			Sender:    m.SenderID,
			Message:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	WriteJSON(w, http.StatusOK, "messages", resp)
}
