package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/dishcovery/api/internal/client"
	"github.com/dishcovery/api/internal/config"
	"github.com/dishcovery/api/internal/handler"
	"github.com/dishcovery/api/internal/middleware"
	"github.com/dishcovery/api/internal/service"
	"github.com/dishcovery/api/internal/worker"
	ws "github.com/dishcovery/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Pick the recommender: real API when configured, deterministic mock
	// otherwise (development and tests)
	httpRecommender := client.NewRecommenderClient(&cfg.Recommender)
	var recommender client.Recommender = httpRecommender
	if !httpRecommender.IsConfigured() {
		log.Println("Info: no recommender API key — using mock recommender")
		recommender = client.NewMockRecommender()
	}

	// Initialize services
	recommendService := service.NewRecommendService(redisClient, asynqClient)
	sessionService := service.NewSessionService(
		redisClient,
		recommender,
		time.Duration(cfg.Session.TTLHours)*time.Hour,
		time.Duration(cfg.Session.OrderTTLHours)*time.Hour,
	)

	// Initialize handlers
	recommendHandler := handler.NewRecommendHandler(recommendService, validate)
	sessionHandler := handler.NewSessionHandler(sessionService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"recommender": httpRecommender.IsConfigured(),
				"auth":        cfg.JWT.Secret != "",
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Recommendation generation routes
	recommend := api.Group("/recommend")
	recommend.Post("/start", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), recommendHandler.Start)
	recommend.Get("/status/:jobId", recommendHandler.Status)
	recommend.Get("/result/:jobId", recommendHandler.Result)
	recommend.Post("/cancel/:jobId", recommendHandler.Cancel)

	// Session routes
	session := api.Group("/session")
	session.Get("/:id", sessionHandler.Get)
	session.Post("/:id/slots/:slotId/swap", rateLimiter.SwapLimit(cfg.RateLimit.SwapPerMin), sessionHandler.Swap)
	session.Post("/:id/slots/:slotId/keep", sessionHandler.Keep)
	session.Post("/:id/slots/:slotId/restore", sessionHandler.Restore)
	session.Post("/:id/toggle", sessionHandler.Toggle)
	session.Post("/:id/addon", rateLimiter.AddOnLimit(cfg.RateLimit.AddOnPerHour), sessionHandler.AddOn)
	session.Get("/:id/totals", sessionHandler.Totals)
	session.Post("/:id/finalize", sessionHandler.Finalize)

	// Final order hand-off for the checkout view
	api.Get("/orders/:recommendationId", sessionHandler.GetOrder)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, recommendService, sessionService, recommender, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	recommendService *service.RecommendService,
	sessionService *service.SessionService,
	recommender client.Recommender,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"recommend": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	recommendWorker := worker.NewRecommendWorker(
		recommendService,
		sessionService,
		recommender,
		hub,
		time.Duration(cfg.Recommender.PollInterval)*time.Millisecond,
		time.Duration(cfg.Recommender.PollMaxWait)*time.Second,
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeRecommend, recommendWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
