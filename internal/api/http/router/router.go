// Package router assembles the HTTP route table.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dtroode/taskhub-server/internal/api/http/handler"
	"github.com/dtroode/taskhub-server/internal/api/http/middleware"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/metrics"
	"github.com/dtroode/taskhub-server/internal/model"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	authService    handler.AuthService
	chatService    handler.ChatService
	chatGateway    http.Handler
	liveness       middleware.LivenessChecker
	codec          model.TokenCodec
	contextManager model.ContextManager
	cookie         handler.CookieConfig
	metrics        *metrics.Metrics
	logger         *logger.Logger
}

// New creates a Router. chatGateway serves the websocket upgrade route.
func New(
	authService handler.AuthService,
	chatService handler.ChatService,
	chatGateway http.Handler,
	liveness middleware.LivenessChecker,
	codec model.TokenCodec,
	contextManager model.ContextManager,
	cookie handler.CookieConfig,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		chatService:    chatService,
		chatGateway:    chatGateway,
		liveness:       liveness,
		codec:          codec,
		contextManager: contextManager,
		cookie:         cookie,
		metrics:        metrics,
		logger:         logger,
	}
}

// Register builds the handler tree.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.metrics, r.logger)
	authenticate := middleware.NewAuthenticate(r.liveness, r.codec, r.contextManager, r.metrics, r.logger)

	authHandler := handler.NewAuth(r.authService, r.contextManager, r.cookie, r.logger)
	chatHandler := handler.NewChat(r.chatService, r.logger)

	mux := chi.NewRouter()
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(logging.Handle)
	mux.Use(chimiddleware.Recoverer)

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteJSONError(w, http.StatusNotFound, "route not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteJSON(w, http.StatusOK, "ok", nil)
	})
	mux.Method(http.MethodGet, "/metrics", r.metrics.Handler())

	mux.Post("/register", authHandler.Register)
	mux.Post("/login", authHandler.Login)
	mux.Post("/refresh_token", authHandler.Refresh)
	mux.Post("/forgot_password", authHandler.ForgotPassword)
	mux.Post("/reset_password", authHandler.ResetPassword)

	mux.Group(func(protected chi.Router) {
		protected.Use(authenticate.Handle)

		protected.Get("/me", authHandler.Me)
		protected.Patch("/password", authHandler.ChangePassword)
		protected.Post("/logout", authHandler.Logout)

		protected.Get("/rooms/{room}/messages", chatHandler.History)
		if r.chatGateway != nil {
			protected.Method(http.MethodGet, "/ws/chat/{room}", r.chatGateway)
		}
	})

	return mux
}
