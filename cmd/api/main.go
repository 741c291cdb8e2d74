package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/internal/api/handlers"
	"github.com/atlas-mind/backend/internal/auth"
	"github.com/atlas-mind/backend/internal/cache/redis"
	"github.com/atlas-mind/backend/internal/chat"
	"github.com/atlas-mind/backend/internal/concepts"
	"github.com/atlas-mind/backend/internal/graph/neo4j"
	"github.com/atlas-mind/backend/internal/ingestion"
	"github.com/atlas-mind/backend/internal/llm"
	"github.com/atlas-mind/backend/internal/metrics"
	"github.com/atlas-mind/backend/internal/middleware/ratelimit"
	"github.com/atlas-mind/backend/internal/middleware/security"
	"github.com/atlas-mind/backend/internal/middleware/validation"
	"github.com/atlas-mind/backend/internal/storage/sqlite"
	"github.com/atlas-mind/backend/internal/workflows"
	"github.com/atlas-mind/backend/pkg/config"
	appLogger "github.com/atlas-mind/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Atlas Mind API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	neo4jClient, err := neo4j.NewClient(
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Neo4j client", zap.Error(err))
	}
	defer neo4jClient.Close(context.Background())

	redisClient, err := redis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		time.Duration(cfg.Redis.ChatTTL)*time.Second,
	)
	if err != nil {
		appLogger.Warn("Redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	extractor := concepts.NewExtractor(concepts.DefaultLimit)
	processor := ingestion.NewProcessor(sqliteClient, neo4jClient, extractor)
	pipeline := chat.NewPipeline(llmClient, neo4jClient, sqliteClient, sqliteClient)

	authService := auth.NewService(
		sqliteClient,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMin)*time.Minute,
		cfg.Auth.BcryptCost,
	)

	var publisher workflows.GooglePublisher
	if cfg.Google.CredentialsFile != "" {
		googleClient, err := workflows.NewGoogleClient(context.Background(), cfg.Google.CredentialsFile)
		if err != nil {
			appLogger.Fatal("Failed to create Google client", zap.Error(err))
		}
		publisher = googleClient
	}

	mailSender := workflows.NewSMTPSender(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
	)

	docWorkflow := workflows.NewDocWorkflow(sqliteClient, llmClient, publisher)
	mailWorkflow := workflows.NewMailWorkflow(sqliteClient, llmClient, mailSender)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 60,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxUploadSize: cfg.Server.BodyLimit,
		Logger:        appLogger.GetLogger(),
	}))

	authHandler := handlers.NewAuthHandler(authService, neo4jClient)
	chatHandler := handlers.NewChatHandler(pipeline, redisClient, sqliteClient)
	wsHandler := handlers.NewWebSocketHandler(pipeline)
	projectHandler := handlers.NewProjectHandler(sqliteClient, neo4jClient)
	resourceHandler := handlers.NewResourceHandler(processor, sqliteClient, redisClient)
	agentHandler := handlers.NewAgentHandler(docWorkflow, mailWorkflow, llmClient, redisClient)

	api := app.Group("/api/v1")

	api.Post("/auth/signup", authHandler.Signup)
	api.Post("/auth/login", authHandler.Login)

	protected := api.Group("", handlers.RequireAuth(authService))

	protected.Post("/chat", chatHandler.HandleChat)
	protected.Get("/chat/history", chatHandler.GetChatHistory)

	protected.Post("/projects", projectHandler.CreateProject)
	protected.Get("/projects", projectHandler.ListProjects)
	protected.Get("/projects/:id", projectHandler.GetProject)
	protected.Get("/projects/:id/graph", projectHandler.GetProjectGraph)

	protected.Post("/projects/:id/resources", resourceHandler.UploadResource)
	protected.Get("/projects/:id/resources", resourceHandler.ListResources)

	protected.Post("/agents/doc", agentHandler.RunDocWorkflow)
	protected.Post("/agents/mail", agentHandler.RunMailWorkflow)
	protected.Post("/agents/chat", agentHandler.SessionChat)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
