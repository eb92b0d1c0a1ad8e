package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/analytics"
	"github.com/enviducate/backend/internal/api/handlers"
	"github.com/enviducate/backend/internal/cache"
	"github.com/enviducate/backend/internal/gee"
	"github.com/enviducate/backend/internal/inference"
	"github.com/enviducate/backend/internal/llm"
	"github.com/enviducate/backend/internal/metrics"
	"github.com/enviducate/backend/internal/middleware/ratelimit"
	"github.com/enviducate/backend/internal/middleware/security"
	"github.com/enviducate/backend/internal/middleware/validation"
	"github.com/enviducate/backend/internal/pipeline"
	"github.com/enviducate/backend/internal/resources"
	"github.com/enviducate/backend/internal/search/web"
	"github.com/enviducate/backend/internal/storage/sqlite"
	"github.com/enviducate/backend/internal/summary"
	"github.com/enviducate/backend/internal/tasks"
	"github.com/enviducate/backend/internal/viz"
	"github.com/enviducate/backend/pkg/config"
	appLogger "github.com/enviducate/backend/pkg/logger"
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

	appLogger.Info("Starting Enviducate API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	llmClient, err := llm.New(llm.Options{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	var searcher inference.Searcher
	if cfg.Search.Enabled {
		searcher = web.NewClient(
			cfg.Search.APIKey,
			cfg.Search.EngineID,
			cfg.Search.MaxResults,
			time.Duration(cfg.Search.TimeoutSec)*time.Second,
		)
	}

	geeClient := gee.NewClient(
		cfg.GEE.Endpoint,
		cfg.GEE.APIKey,
		time.Duration(cfg.GEE.TimeoutSec)*time.Second,
	)

	var resultCache cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		redisStore := cache.NewRedisStore(
			fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
		)
		defer redisStore.Close()
		resultCache = redisStore
	default:
		resultCache = cache.NewMemoryStore(time.Duration(cfg.Cache.TTLSec) * time.Second)
	}

	engine := pipeline.NewEngine(pipeline.EngineOptions{
		Inferencer:  inference.NewInferencer(llmClient, searcher),
		Analyzer:    analytics.NewAdapter(geeClient, cfg.GEE.StartDate, cfg.GEE.EndDate),
		Renderer:    viz.NewRenderer(cfg.Viz.RenderURL, cfg.Viz.StaticDir, time.Duration(cfg.Viz.TimeoutSec)*time.Second),
		Summarizer:  summary.NewSynthesizer(llmClient),
		Recommender: resources.NewRecommender(llmClient),
		Cache:       resultCache,
		Tasks:       tasks.NewStore(),
		History:     sqliteClient,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxQueryLength: cfg.Query.MaxLength,
		Logger:         appLogger.GetLogger(),
	}))

	queryHandler := handlers.NewQueryHandler(engine, cfg.Query.MaxLength)
	analysisHandler := handlers.NewAnalysisHandler(engine, cfg.Query.MaxLength)
	wsHandler := handlers.NewWebSocketHandler(engine)

	api := app.Group("/api/v1")

	api.Post("/query", queryHandler.HandleQuery)
	api.Get("/query/history", queryHandler.GetQueryHistory)

	api.Post("/analyze", analysisHandler.HandleAnalyze)
	api.Post("/analyze/async", analysisHandler.HandleAnalyzeAsync)
	api.Get("/analyze/status/:task_id", analysisHandler.HandleAnalysisStatus)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())
	app.Static("/static/images", cfg.Viz.StaticDir)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/analyze", websocket.New(wsHandler.HandleConnection))

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
