package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpctx "github.com/dtroode/taskhub-server/internal/api/http/context"
	"github.com/dtroode/taskhub-server/internal/api/http/handler"
	"github.com/dtroode/taskhub-server/internal/api/http/router"
	"github.com/dtroode/taskhub-server/internal/chat"
	"github.com/dtroode/taskhub-server/internal/config"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/mail"
	"github.com/dtroode/taskhub-server/internal/metrics"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/password"
	"github.com/dtroode/taskhub-server/internal/repository/postgres"
	"github.com/dtroode/taskhub-server/internal/server"
	"github.com/dtroode/taskhub-server/internal/service"
	"github.com/dtroode/taskhub-server/internal/storage/memory"
	"github.com/dtroode/taskhub-server/internal/storage/redis"
	"github.com/dtroode/taskhub-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	cache, sweepCache, closeCache := newCache(ctx, cfg.Redis, logger)
	defer closeCache()

	userRepo := postgres.NewUserRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	tokenManager := token.NewJWT(cfg.JWT.Secret, token.WithTTL(cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL))
	hasher := password.NewBcrypt(cfg.Session.BcryptCost)
	appMetrics := metrics.New()

	var mailer model.Mailer = mail.NewNoopSender(logger)
	if cfg.Mail.Host != "" {
		mailer = mail.NewSMTPSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	}

	revocation := service.NewRevocation(cache, cfg.Session.AccessCacheTTL)
	tokenService := service.NewTokenService(tokenManager, refreshTokenRepo, revocation, cfg.JWT.RefreshTTL, logger)
	authService := service.NewAuth(userRepo, db, hasher, tokenService, cache, mailer, cfg.Session.ResetSecretTTL, appMetrics, logger)
	chatService := service.NewChat(messageRepo, logger)
	ctxMgr := httpctx.NewManager()

	gateway := chat.NewGateway(chat.NewHub(logger), chatService, ctxMgr, chat.GatewayConfig{
		OriginPatterns:    cfg.Chat.AllowedOrigins,
		SendQueueSize:     cfg.Chat.SendQueueSize,
		WriteTimeout:      cfg.Chat.WriteTimeout,
		HeartbeatInterval: cfg.Chat.HeartbeatInterval,
	}, logger)

	r := router.New(authService, chatService, gateway, revocation, tokenManager, ctxMgr, handler.CookieConfig{
		Name:     cfg.Cookie.Name,
		Path:     cfg.Cookie.Path,
		Domain:   cfg.Cookie.Domain,
		Secure:   cfg.Cookie.Secure,
		SameSite: cfg.Cookie.SameSiteMode(),
		MaxAge:   cfg.JWT.RefreshTTL,
	}, appMetrics, logger)

	httpServer := server.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port), cfg.HTTP.ReadHeaderTimeout)

	var sl server.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s server.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(httpServer)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweeper(ctx, cfg.Database.SweepInterval, tokenService, sweepCache, logger)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}
	if err := gateway.Close(shutdownCtx); err != nil {
		logger.Error("error during chat shutdown", "error", err)
	}
	authService.Wait()

	wg.Wait()
	logger.Info("shutdown complete")
}

// newCache picks Redis when an address is configured and the in-process
// cache otherwise. The returned sweep func is nil for Redis, which expires
// keys itself.
func newCache(ctx context.Context, cfg config.Redis, logger *logger.Logger) (model.Cache, func() int, func()) {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR is empty, using in-process cache")
		c := memory.NewCache()
		return c, c.Sweep, func() {}
	}

	c, err := redis.NewClient(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		logger.Fatal("failed to connect to redis", "error", err, "addr", cfg.Addr)
	}
	return c, nil, func() {
		if err := c.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}
}

func runSweeper(ctx context.Context, interval time.Duration, tokens *service.TokenService, sweepCache func() int, logger *logger.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := tokens.PurgeExpired(ctx); err != nil {
				logger.Error("failed to purge expired refresh tokens", "error", err)
			}
			if sweepCache != nil {
				if n := sweepCache(); n > 0 {
					logger.Debug("swept expired cache entries", "count", n)
				}
			}
		}
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
