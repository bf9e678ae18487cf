package main

import (
	"context"
	"log"
	"time"

	"WhereIsThisPlace/internal/config"
	"WhereIsThisPlace/internal/database/milvus"
	"WhereIsThisPlace/internal/database/mysql"
	"WhereIsThisPlace/internal/database/redis"
	"WhereIsThisPlace/internal/embedding"
	"WhereIsThisPlace/internal/geocoder"
	"WhereIsThisPlace/internal/llm"
	"WhereIsThisPlace/internal/models"
	"WhereIsThisPlace/internal/predict_service/api"
	"WhereIsThisPlace/internal/predict_service/service"
	"WhereIsThisPlace/internal/predict_service/store"
	"WhereIsThisPlace/pkg/circuitbreaker"
	"WhereIsThisPlace/pkg/logger"
	"WhereIsThisPlace/pkg/ratelimiter"

	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	level, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("predict_service", "")

	appLogger.Info("Logger initialized")

	// Initialize database connection
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	appLogger.Info("Database connection established")

	// Auto-migrate database schema
	if err := db.AutoMigrate(&models.Photo{}); err != nil {
		appLogger.Fatal(err.Error())
	}
	appLogger.Info("Database migration completed")

	// Initialize Milvus and ensure the reference collection exists
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	milvusClient, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer milvusClient.Close()

	if err := milvusClient.EnsureCollection(ctx); err != nil {
		appLogger.Fatal(err.Error())
	}
	appLogger.Info("Milvus collection ready")

	// Build the embedding client, optionally behind a circuit breaker
	var breaker *circuitbreaker.CircuitBreaker
	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker = circuitbreaker.New(
			cfg.Middleware.CircuitBreaker.FailureThreshold,
			cfg.Middleware.CircuitBreaker.SuccessThreshold,
			config.ParseDuration(cfg.Middleware.CircuitBreaker.Timeout, 30*time.Second),
		)
	}
	embedder := embedding.NewTorchServeModel(
		cfg.Embedding.URL,
		cfg.Embedding.Model,
		config.ParseDuration(cfg.Embedding.Timeout, 30*time.Second),
		breaker,
	)

	// Vision fallback is only wired when an API key is configured
	var vision llm.VisionModel
	var geo geocoder.Geocoder
	capable := cfg.OpenAI.APIKey != ""
	if capable {
		vision = llm.NewOpenAI(cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		geo = geocoder.NewNominatim(
			cfg.Geocoder.URL,
			cfg.Geocoder.UserAgent,
			config.ParseDuration(cfg.Geocoder.Timeout, 10*time.Second),
		)
		appLogger.Info("Vision fallback enabled")
	} else {
		appLogger.Info("Vision fallback disabled: no API key configured")
	}

	// Initialize dependencies (Store -> Service -> Handler)
	predictionStore := store.NewStore(db)
	predictService := service.NewService(
		embedder,
		milvusClient,
		service.NewBiasCorrector(cfg.Bias),
		service.NewFallbackPolicy(cfg.Bias, capable, cfg.OpenAI.PreferFallback),
		vision,
		geo,
		predictionStore,
		cfg.OpenAI.FallbackScore,
		appLogger,
	)
	apiHandler := api.NewHandler(predictService, cfg.Embedding.ManagementURL)
	appLogger.Info("Dependencies injected")

	// Rate limiting: Redis-backed when configured, in-process otherwise
	opts := api.RouterOptions{EphemeralUpload: cfg.Middleware.EphemeralUpload}
	if cfg.Middleware.RateLimiter.Enabled {
		window := config.ParseDuration(cfg.Middleware.RateLimiter.Period, 24*time.Hour)
		limit := cfg.Middleware.RateLimiter.Limit

		if cfg.Middleware.RateLimiter.Backend == "redis" {
			rdb, err := redis.GetClient(&cfg.Databases.Redis)
			if err != nil {
				appLogger.Fatal(err.Error())
			}
			opts.RateLimiter = ratelimiter.NewRedisFixedWindow(rdb, limit, window)
		} else {
			opts.RateLimiter = ratelimiter.NewFixedWindowCounter(limit, window)
		}
		appLogger.Info("Rate limiter enabled")
	}

	// Setup and start Gin router
	router := api.SetupRouter(apiHandler, opts)
	appLogger.Info("Router setup completed")

	serverAddress := cfg.App.Address
	if serverAddress == "" {
		serverAddress = ":8000"
	}
	appLogger.Info("Starting server on " + serverAddress)

	if err := router.Run(serverAddress); err != nil {
		appLogger.Fatal(err.Error())
	}
}
