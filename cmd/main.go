package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"ragis-server/internal/ai"
	"ragis-server/internal/config"
	"ragis-server/internal/logger"
	"ragis-server/internal/telemetry"
	"ragis-server/routes"
	"ragis-server/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("ragis-server", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, parameter overrides and task queue disabled", "error", err)
		rdb = nil
	}

	gemini, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer gemini.Close()

	store := services.NewMongoStore(db, cfg.VectorSearchEnabled, cfg.VectorIndexName)
	paramStore := services.NewParamStore(rdb, cfg.DataDir)
	indexer := services.NewIndexer(store, gemini)
	gate := services.NewGate(store, gemini)
	query := services.NewQueryService(store, gemini, gemini)

	var queueClient *asynq.Client
	if rdb != nil {
		queueClient = asynq.NewClient(redisOpt(cfg))
		defer queueClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if username := os.Getenv("ADMIN_USERNAME"); username != "" {
		if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
			if err := routes.EnsureDefaultAdmin(ctx, db, username, password); err != nil {
				logger.Warn("Failed to ensure default admin", "error", err)
			}
		}
	}

	scheduler := services.NewScheduler(indexer, paramStore)
	if err := scheduler.Start(ctx); err != nil {
		logger.Warn("Failed to start reindex scheduler", "error", err)
	}
	defer scheduler.Stop()

	// Pick up anything dropped into the data dir while we were down.
	go func() {
		params := paramStore.Resolve(ctx)
		if _, err := indexer.Reindex(ctx, params); err != nil && !errors.Is(err, services.ErrIndexerBusy) {
			logger.Error("Startup reindex failed", "error", err)
		}
	}()

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("ragis-server"))
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"reindexing": indexer.Busy(),
		})
	})

	routes.SetupAuthRoutes(router, cfg, db)
	routes.SetupChatRoutes(router, cfg, db, indexer, gate, query, paramStore)
	routes.SetupAdminRoutes(router, cfg, db, store, indexer, paramStore, queueClient)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		if opt, err := asynq.ParseRedisURI(cfg.RedisURL); err == nil {
			if clientOpt, ok := opt.(asynq.RedisClientOpt); ok {
				return clientOpt
			}
		}
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
