package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/dtroode/taskhub-server/internal/api/http/handler"
	"github.com/dtroode/taskhub-server/internal/apierror"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/service"
)

const (
	DefaultSendQueueSize     = 64
	DefaultWriteTimeout      = 5 * time.Second
	DefaultHeartbeatInterval = 25 * time.Second

	heartbeatTimeout = 5 * time.Second
	maxPingFailures  = 3
	maxFrameBytes    = 64 << 10
	closeGrace       = time.Second
)

// Event types sent to clients.
const (
	EventMessage = "message"
	EventError   = "error"
)

// Event is the server-to-client frame.
type Event struct {
	Type      string     `json:"type"`
	ID        string     `json:"id,omitempty"`
	Room      string     `json:"room,omitempty"`
	Sender    *uuid.UUID `json:"sender,omitempty"`
	Message   string     `json:"message,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Error     string     `json:"error,omitempty"`
	Details   any        `json:"details,omitempty"`
}

type inbound struct {
	Message string `json:"message"`
}

// Poster persists a message posted to a room.
type Poster interface {
	Post(ctx context.Context, room string, sender uuid.UUID, content string) (model.ChatMessage, error)
}

// GatewayConfig tunes connection handling. Zero values take defaults.
// Reads carry no deadline; dead peers are found by the heartbeat.
type GatewayConfig struct {
	OriginPatterns    []string
	SendQueueSize     int
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
}

func (c *GatewayConfig) applyDefaults() {
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = DefaultSendQueueSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
}

// Gateway upgrades authenticated requests to websocket sessions bound to
// one room. Inbound messages are persisted through the Poster, then
// broadcast to the room.
type Gateway struct {
	hub        *Hub
	poster     Poster
	ctxManager model.ContextManager
	cfg        GatewayConfig
	logger     *logger.Logger

	mu       sync.Mutex
	closing  chan struct{}
	closed   bool
	sessions sync.WaitGroup
}

func NewGateway(hub *Hub, poster Poster, ctxManager model.ContextManager, cfg GatewayConfig, logger *logger.Logger) *Gateway {
	cfg.applyDefaults()
	return &Gateway{
		hub:        hub,
		poster:     poster,
		ctxManager: ctxManager,
		cfg:        cfg,
		logger:     logger,
		closing:    make(chan struct{}),
	}
}

// Close asks every open session to go away and waits for them to finish
// or for ctx to end. Hijacked connections are not tracked by http.Server.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	if !g.closed {
		g.closed = true
		close(g.closing)
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	if !service.ValidRoom(room) {
		handler.WriteJSONError(w, http.StatusBadRequest, "invalid room name")
		return
	}

	identity, ok := g.ctxManager.GetIdentityFromContext(r.Context())
	if !ok {
		handler.WriteJSONError(w, http.StatusUnauthorized, apierror.MsgMissingAuthorization)
		return
	}

	if !g.track() {
		handler.WriteJSONError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	defer g.sessions.Done()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.cfg.OriginPatterns,
	})
	if err != nil {
		g.logger.Info("Chat gateway: failed to accept websocket", "error", err.Error())
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	g.serve(r.Context(), conn, room, identity)
}

func (g *Gateway) track() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.sessions.Add(1)
	return true
}

func (g *Gateway) serve(parent context.Context, conn *websocket.Conn, room string, identity model.Identity) {
	client := NewClient(ulid.Make().String(), identity.UserID, g.cfg.SendQueueSize)
	log := g.logger.With("room", room, "client_id", client.ID, "user_id", identity.UserID)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	g.hub.Join(room, client)
	log.Info("Chat gateway: session opened")

	var closeOnce sync.Once
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.hub.Leave(room, client.ID)
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	go func() {
		select {
		case <-g.closing:
			shutdown(websocket.StatusGoingAway, "server shutting down")
		case <-ctx.Done():
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case ev := <-client.Send:
				if err := g.write(ctx, conn, ev); err != nil {
					log.Info("Chat gateway: write failed", "error", err.Error())
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		g.heartbeat(ctx, conn, client, log, shutdown)
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				log.Debug("Chat gateway: read ended", "error", err.Error())
			}
			break
		}
		if typ != websocket.MessageText {
			client.offer(errorEvent("expected text message", nil))
			continue
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			client.offer(errorEvent("invalid JSON", nil))
			continue
		}

		msg, err := g.poster.Post(ctx, room, identity.UserID, in.Message)
		if err != nil {
			if apiErr, ok := apierror.As(err); ok && apiErr.Status < http.StatusInternalServerError {
				client.offer(errorEvent(apiErr.Message, apiErr.Details))
				continue
			}
			log.Error("Chat gateway: failed to post message", "error", err.Error())
			client.offer(errorEvent("failed to send message", nil))
			continue
		}

		g.hub.Broadcast(room, messageEvent(msg))
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(closeGrace):
	}
	log.Info("Chat gateway: session closed")
}

func (g *Gateway) heartbeat(ctx context.Context, conn *websocket.Conn, client *Client, log *logger.Logger, shutdown func(websocket.StatusCode, string)) {
	t := time.NewTicker(g.cfg.HeartbeatInterval)
	defer t.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			return
		case <-t.C:
			pingCtx, cancel := context.WithTimeout(ctx, heartbeatTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			log.Debug("Chat gateway: ping failed", "failures", failures, "error", err.Error())
			if failures >= maxPingFailures {
				shutdown(websocket.StatusGoingAway, "heartbeat failed")
				return
			}
		}
	}
}

func (g *Gateway) write(ctx context.Context, conn *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.WriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

func messageEvent(m model.ChatMessage) Event {
	sender := m.SenderID
	createdAt := m.CreatedAt
	return Event{
		Type:      EventMessage,
		ID:        m.ID,
		Room:      m.Room,
		Sender:    &sender,
		Message:   m.Content,
		CreatedAt: &createdAt,
	}
}

func errorEvent(msg string, details any) Event {
	return Event{Type: EventError, Error: msg, Details: details}
}
