package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"echo-service/internal/config"
	"echo-service/internal/db"
	"echo-service/internal/handlers"
	"echo-service/internal/identity"
	"echo-service/internal/middleware"
	"echo-service/internal/observability"
	"echo-service/internal/rabbitmq"
	"echo-service/internal/realtime"
	"echo-service/internal/repositories"
	"echo-service/internal/services"
	"echo-service/internal/telemetry"
	"echo-service/internal/ws"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Environment, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint, logger)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	database, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	redisClient := connectRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.AuditExchange, logger)
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, "audit.echo", cfg.Telemetry.ServiceName, cfg.Environment, logger)

	userRepo := repositories.NewUserRepo(database)
	contactRepo := repositories.NewContactRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	// Transports
	hub := ws.NewHub(logger)
	var pusherPublisher *realtime.PusherPublisher
	publishers := make([]realtime.Publisher, 0, len(cfg.Realtime.Transports))
	for _, name := range cfg.Realtime.Transports {
		switch name {
		case config.TransportWebsocket:
			publishers = append(publishers, hub)
		case config.TransportPusher:
			pusherPublisher = realtime.NewPusherPublisher(realtime.PusherConfig{
				AppID:   cfg.Realtime.PusherAppID,
				Key:     cfg.Realtime.PusherKey,
				Secret:  cfg.Realtime.PusherSecret,
				Cluster: cfg.Realtime.PusherCluster,
			})
			publishers = append(publishers, pusherPublisher)
		case config.TransportAMQP:
			broker := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
			defer broker.Close()
			publishers = append(publishers, realtime.NewAMQPPublisher(broker))
		case config.TransportRedis:
			if redisClient != nil {
				publishers = append(publishers, realtime.NewRedisPublisher(redisClient))
			}
		}
	}
	fanout := realtime.NewFanout(logger, cfg.Realtime.PublishTimeout, publishers...)
	logger.Info("realtime fanout ready", zap.Strings("transports", fanout.Transports()))

	// Identity
	verifier, err := identity.NewJWTVerifier(identity.VerifierConfig{
		HMACSecret:      cfg.Auth.HMACSecret,
		RSAPublicKeyPEM: cfg.Auth.RSAPublicKeyPEM,
		Issuer:          cfg.Auth.Issuer,
		Audience:        cfg.Auth.Audience,
	})
	if err != nil {
		return err
	}
	var fetcher identity.ProfileFetcher = identity.NewHTTPProfileFetcher(cfg.Identity.APIURL, cfg.Identity.SecretKey, cfg.Identity.RequestTimeout)
	var invalidator services.ProfileInvalidator
	if redisClient != nil {
		cached := identity.NewCachedProfileFetcher(fetcher, redisClient, cfg.Redis.ProfileCacheTTL, logger)
		fetcher, invalidator = cached, cached
	}

	userService := services.NewUserService(userRepo, fetcher, invalidator, hub, logger)
	contactService := services.NewContactService(contactRepo, userRepo)
	conversationService := services.NewConversationService(conversationRepo, contactRepo, userRepo, hub, logger)
	messageService := services.NewMessageService(messageRepo, conversationRepo, fanout)
	presenceService := services.NewPresenceService(userRepo, contactRepo, fanout, logger)

	authenticator := middleware.NewAuthenticator(verifier, userService, logger)
	authorizer := realtime.NewAuthorizer(conversationRepo)

	var signer handlers.SubscriptionSigner
	if pusherPublisher != nil {
		signer = pusherPublisher
	}
	webhookHandler, err := handlers.NewWebhookHandler(userService, cfg.Identity.WebhookSigningSecret, logger)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.Telemetry.ServiceName),
		middleware.RequestIDMiddleware(),
		middleware.RequestLogger(logger),
		observability.HTTPMetricsMiddleware(),
		middleware.ErrorHandler(logger),
	)

	checks := map[string]handlers.Pinger{"postgres": database}
	if redisClient != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}
	router.GET("/health", handlers.Health(version, checks))
	router.GET("/metrics", gin.WrapH(observability.MetricsHandler()))
	router.POST("/webhooks/identity", webhookHandler.Handle)
	if cfg.Realtime.HasTransport(config.TransportWebsocket) {
		gateway := ws.NewGateway(hub, authenticator, authorizer, presenceService, logger)
		router.GET("/ws", gateway.Handle)
	}

	authed := router.Group("/")
	authed.Use(authenticator.RequireAuth())
	if redisClient != nil {
		limiter := middleware.NewRateLimitMiddleware(repositories.NewRateLimitRepo(redisClient, logger),
			cfg.Redis.RateLimit, cfg.Redis.RateLimitWindow, logger)
		authed.Use(limiter.Limit())
	}

	registerRoutes(authed, routeHandlers{
		users:         handlers.NewUserHandler(userService),
		contacts:      handlers.NewContactHandler(contactService, audit),
		conversations: handlers.NewConversationHandler(conversationService, audit),
		messages:      handlers.NewMessageHandler(messageService),
		presence:      handlers.NewPresenceHandler(presenceService),
		realtime:      handlers.NewRealtimeHandler(authorizer, signer, logger),
	})
	handlers.RegisterDebugRoutes(authed, audit, fanout.Transports(), cfg.Server.DebugRoutes)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("audit_publisher", rabbitmq.PublisherMode(auditPublisher)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	if err := fanout.Close(shutdownCtx); err != nil {
		logger.Warn("realtime fanout did not drain", zap.Error(err))
	}
	return nil
}

type routeHandlers struct {
	users         *handlers.UserHandler
	contacts      *handlers.ContactHandler
	conversations *handlers.ConversationHandler
	messages      *handlers.MessageHandler
	presence      *handlers.PresenceHandler
	realtime      *handlers.RealtimeHandler
}

func registerRoutes(r gin.IRouter, h routeHandlers) {
	r.GET("/users/me", h.users.Me)
	r.PATCH("/users/me", h.users.UpdateMe)
	r.GET("/users", h.users.List)
	r.GET("/users/search", h.users.Search)
	r.GET("/users/:id", h.users.Get)

	r.GET("/contacts", h.contacts.ListAccepted)
	r.GET("/contacts/pending", h.contacts.ListPending)
	r.GET("/contacts/sent", h.contacts.ListSent)
	r.POST("/contacts/request/:userId", h.contacts.SendRequest)
	r.POST("/contacts/accept/:contactId", h.contacts.Accept)
	r.DELETE("/contacts/:contactId", h.contacts.Reject)

	r.POST("/conversations", h.conversations.Create)
	r.GET("/conversations", h.conversations.List)
	r.POST("/conversations/direct/:userId", h.conversations.CreateDirect)
	r.GET("/conversations/:id", h.conversations.Get)
	r.PATCH("/conversations/:id", h.conversations.Rename)
	r.DELETE("/conversations/:id", h.conversations.Leave)
	r.GET("/conversations/:id/participants", h.conversations.ListParticipants)
	r.POST("/conversations/:id/participants", h.conversations.AddParticipants)
	r.DELETE("/conversations/:id/participants/:userId", h.conversations.RemoveParticipant)
	r.PATCH("/conversations/:id/participants/:userId/role", h.conversations.UpdateParticipantRole)

	r.POST("/conversations/:id/messages", h.messages.Send)
	r.GET("/conversations/:id/messages", h.messages.List)
	r.POST("/conversations/:id/messages/read", h.messages.MarkRead)
	r.GET("/conversations/:id/messages/:messageId", h.messages.Get)
	r.PATCH("/conversations/:id/messages/:messageId", h.messages.Edit)
	r.DELETE("/conversations/:id/messages/:messageId", h.messages.Delete)

	r.POST("/presence/online", h.presence.Online)
	r.POST("/presence/offline", h.presence.Offline)
	r.POST("/presence/heartbeat", h.presence.Heartbeat)
	r.GET("/presence/contacts", h.presence.Contacts)

	r.POST("/realtime/auth", h.realtime.Authorize)
}

// connectRedis returns nil when Redis is not configured. An unreachable
// server is logged and kept; its callers fail open.
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("redis disabled: no address configured")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("redis connected", zap.String("addr", cfg.Addr))
	}
	return client
}
