package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"mentor-chat-service/internal/config"
	"mentor-chat-service/internal/db"
	"mentor-chat-service/internal/delivery"
	"mentor-chat-service/internal/handlers"
	"mentor-chat-service/internal/middleware"
	"mentor-chat-service/internal/observability"
	"mentor-chat-service/internal/rabbitmq"
	"mentor-chat-service/internal/repositories"
	"mentor-chat-service/internal/telemetry"
	"mentor-chat-service/internal/ws"
)

func main() {
	cfg := config.Load()

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), "mentor-chat-service", cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit_log.chat", "mentor-chat-service", cfg.Telemetry.Environment)

	messageRepo := repositories.NewMessageRepo(database)
	linkRepo := repositories.NewLinkRepo(database)
	typingRepo := repositories.NewTypingRepo(database)

	hub := ws.NewHub()

	authorizer := delivery.NewAuthorizer(linkRepo)
	coalescer := delivery.NewCoalescer(messageRepo)
	dispatcher := delivery.NewDispatcher(authorizer, coalescer, hub)
	typing := delivery.NewTypingSynchronizer(typingRepo, hub)
	seen := delivery.NewSeenSynchronizer(messageRepo, hub)

	messageHandler := handlers.NewMessageHandler(dispatcher, typing, seen, authorizer, messageRepo)
	linkHandler := handlers.NewLinkHandler(linkRepo, auditEmitter)
	chatWS := ws.NewChatWebSocketHandler(hub, dispatcher, typing, seen, cfg.JWT.Secret)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("mentor-chat-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(cfg.JWT.Secret)

	router.POST("/messages", authMiddleware, messageHandler.PostMessage)
	router.GET("/messages/:other_id", authMiddleware, messageHandler.GetMessages)
	router.POST("/typing", authMiddleware, messageHandler.PostTyping)
	router.POST("/mark_seen/:other_id", authMiddleware, messageHandler.MarkSeen)

	router.GET("/links/mentor", authMiddleware, middleware.RequireStudent(), linkHandler.MyMentor)
	router.GET("/links/requests", authMiddleware, middleware.RequireMentor(), linkHandler.MyRequests)
	router.POST("/links/approve", authMiddleware, middleware.RequireMentor(), linkHandler.ApproveStudent)

	router.GET("/ws", chatWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
