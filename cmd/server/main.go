package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"stackhub/internal/blobstore"
	"stackhub/internal/config"
	"stackhub/internal/database"
	"stackhub/internal/embedding"
	"stackhub/internal/handlers"
	"stackhub/internal/logging"
	"stackhub/internal/middleware"
	"stackhub/internal/preflight"
	"stackhub/internal/queue"
	"stackhub/internal/services"
	"stackhub/internal/vecindex"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting StackHub Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, DB: %s)", cfg.Port, cfg.DatabasePath)

	// Initialize SQLite database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize blob store for durable export artifacts
	blobs, err := blobstore.New(cfg.BlobDir)
	if err != nil {
		log.Fatalf("❌ Failed to initialize blob store: %v", err)
	}

	// Run preflight checks
	checker := preflight.NewChecker(db, cfg.BlobDir)
	if preflight.HasFailures(checker.RunAll()) {
		log.Println("\n❌ Pre-flight checks failed. Please fix the issues above before starting the server.")
		os.Exit(1)
	}
	log.Println("✅ All pre-flight checks passed")

	// Initialize Redis (optional - fast export cache + indexing queue).
	// Without it the server falls back to in-process equivalents.
	var redisService *services.RedisService
	var indexQueue queue.Queue
	var exportCache services.ResponseCache

	cacheTTL := time.Duration(cfg.ExportCacheTTL) * time.Second
	if cfg.RedisURL != "" {
		log.Println("🔗 Connecting to Redis...")
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (using in-process queue and cache)", err)
		} else {
			log.Println("✅ Redis connected successfully")
			indexQueue = queue.NewRedisQueue(redisService.Client(), cfg.QueueMaxAttempts)
			exportCache = services.NewRedisResponseCache(redisService, cacheTTL)
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - using in-process queue and cache")
	}
	if indexQueue == nil {
		indexQueue = queue.NewMemoryQueue(cfg.QueueMaxAttempts)
	}
	if exportCache == nil {
		exportCache = services.NewMemoryResponseCache(cacheTTL)
	}

	// Initialize embedding engine
	engine, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.EmbeddingProvider,
		OllamaEndpoint: cfg.OllamaEndpoint,
		OllamaModel:    cfg.OllamaModel,
		GenAIAPIKey:    cfg.GenAIAPIKey,
		GenAIModel:     cfg.GenAIModel,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize embedding engine: %v", err)
	}
	log.Printf("✅ Embedding engine initialized (%s, %d dims)", engine.Name(), engine.Dimensions())

	// Initialize Prometheus metrics
	metrics := services.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	// Initialize services
	itemService := services.NewItemService(db, indexQueue)
	exportService := services.NewExportService(itemService, blobs, exportCache, metrics)
	indexService := services.NewIndexService(itemService, vecindex.New(db), engine, indexQueue, metrics)
	bundleService := services.NewBundleService(itemService)

	// Seed the catalog from file (optional)
	if cfg.SeedFile != "" {
		count, err := itemService.SeedFromFile(context.Background(), cfg.SeedFile)
		if err != nil {
			log.Fatalf("❌ Failed to seed items from %s: %v", cfg.SeedFile, err)
		}
		log.Printf("🌱 Seeded %d items from %s", count, cfg.SeedFile)
	}

	// Load curated bundles (optional)
	if cfg.BundlesFile != "" {
		if err := bundleService.LoadFromFile(cfg.BundlesFile); err != nil {
			log.Fatalf("❌ Failed to load bundles from %s: %v", cfg.BundlesFile, err)
		}
	}

	// Start the indexing pipeline consumer
	indexService.Start()

	// Scheduled full reindex (optional)
	var reindexScheduler *services.ReindexScheduler
	if cfg.ReindexCron != "" {
		reindexScheduler, err = services.NewReindexScheduler(indexService, cfg.ReindexCron)
		if err != nil {
			log.Fatalf("❌ Failed to create reindex scheduler: %v", err)
		}
		reindexScheduler.Start()
	} else {
		log.Println("⚠️ REINDEX_CRON not set - scheduled reindex disabled")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "StackHub v1.0",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    2 * 1024 * 1024, // item payloads are small scripts
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("stackhub")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Load rate limiting configuration
	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Export=%d/min, Search=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.ExportMax,
		rateLimitConfig.SearchMax,
	)

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	app.Use(middleware.GlobalAPIRateLimiter(rateLimitConfig))
	exportLimiter := middleware.ExportRateLimiter(rateLimitConfig)
	searchLimiter := middleware.SearchRateLimiter(rateLimitConfig)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, indexQueue, vecindex.New(db))
	itemHandler := handlers.NewItemHandler(itemService)
	exportHandler := handlers.NewExportHandler(exportService)
	searchHandler := handlers.NewSearchHandler(indexService)
	bundleHandler := handlers.NewBundleHandler(bundleService)

	// Routes
	app.Get("/health", healthHandler.Handle)
	app.Get("/items", itemHandler.List)
	app.Post("/items", itemHandler.Upsert)
	app.Get("/export", exportLimiter, exportHandler.Export)
	app.Get("/share/:digest", exportHandler.Share)
	app.Get("/search", searchLimiter, searchHandler.Search)
	app.Post("/reindex", searchHandler.Reindex)
	app.Get("/bundles", bundleHandler.List)
	app.Get("/validate", bundleHandler.Validate)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if reindexScheduler != nil {
			reindexScheduler.Stop()
		}

		// Stop the consumer before closing the queue so the in-flight
		// unit settles.
		indexService.Stop()
		if err := indexQueue.Close(); err != nil {
			log.Printf("⚠️ Error closing queue: %v", err)
		}

		if redisService != nil {
			redisService.Close()
		}

		// Shutdown Fiber
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
