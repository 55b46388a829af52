package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"

	"folioshare-api/internal/auth"
	"folioshare-api/internal/config"
	"folioshare-api/internal/handlers"
	"folioshare-api/internal/services"
	"folioshare-api/internal/store"
	"folioshare-api/pkg/finnhub"
)

func main() {
	// Load configuration
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()

	// Initialize storage, degrading to in-memory when Firestore is
	// unconfigured or unreachable
	var (
		portfolioStore store.PortfolioStore
		userStore      store.UserStore
		fsStore        *store.FirestoreStore
		storageName    = "memory"
	)
	if cfg.FirestoreProject != "" {
		fs, err := store.NewFirestoreStore(ctx, cfg.FirestoreProject)
		if err != nil {
			log.Printf("⚠️  Failed to initialize Firestore: %v", err)
		} else {
			fsStore = fs
			portfolioStore, userStore = fs, fs
			storageName = "firestore"
		}
	}
	if portfolioStore == nil {
		mem := store.NewMemoryStore()
		portfolioStore, userStore = mem, mem
	}

	// Initialize services
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenExpiry)
	valuationService := services.NewValuationService(cfg, finnhub.NewClient(cfg.FinnhubKey))
	insightService := services.NewInsightService(ctx, cfg)
	portfolioService := services.NewPortfolioService(cfg, portfolioStore, valuationService, insightService)
	accountService := services.NewAccountService(userStore, jwtManager)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(accountService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	healthHandler := handlers.NewHealthHandler(storageName)
	requireAuth := handlers.RequireAuth(jwtManager)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		StrictRouting: false,
		CaseSensitive: true,
		ServerHeader:  "Folioshare-API",
		AppName:       "Folioshare v1.0",
		ReadTimeout:   time.Second * 10,
		WriteTimeout:  time.Second * 30,
		BodyLimit:     1 * 1024 * 1024, // 1MB
		ErrorHandler:  handlers.CustomErrorHandler,
	})

	// Middleware stack
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	}))

	// Routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Folioshare API",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	app.Get("/health", healthHandler.Health)
	app.Get("/health/ready", healthHandler.Ready)

	app.Post("/api/signup", authHandler.Signup)
	app.Post("/api/login", authHandler.Login)

	// The public read is the only unauthenticated portfolio route;
	// /mine and /public/:id must register before /:id.
	portfolios := app.Group("/api/portfolios")
	portfolios.Post("/", requireAuth, portfolioHandler.Submit)
	portfolios.Get("/mine", requireAuth, portfolioHandler.Mine)
	portfolios.Get("/public/:id", portfolioHandler.GetPublic)
	portfolios.Get("/:id", requireAuth, portfolioHandler.Get)
	portfolios.Put("/:id", requireAuth, portfolioHandler.Update)
	portfolios.Delete("/:id", requireAuth, portfolioHandler.Revoke)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("🚀 Folioshare API started on port %s", port)
	log.Printf("📊 Environment: %s", cfg.Environment)
	log.Printf("💾 Storage: %s", storageName)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if fsStore != nil {
		if err := fsStore.Close(); err != nil {
			log.Printf("⚠️  Failed to close Firestore client: %v", err)
		}
	}

	log.Println("✅ Server shutdown complete")
}
