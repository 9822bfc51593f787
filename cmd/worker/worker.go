package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"ragis-server/internal/ai"
	"ragis-server/internal/config"
	"ragis-server/internal/logger"
	"ragis-server/internal/queue"
	"ragis-server/services"
)

// The worker consumes queued reindex tasks so heavy ingestion never runs
// on the API process.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg)

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
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	gemini, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer gemini.Close()

	store := services.NewMongoStore(db, cfg.VectorSearchEnabled, cfg.VectorIndexName)
	paramStore := services.NewParamStore(rdb, cfg.DataDir)
	indexer := services.NewIndexer(store, gemini)
	processor := queue.NewTaskProcessor(indexer, paramStore)

	srv := asynq.NewServer(workerRedisOpt(cfg), asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskReindex, processor.HandleReindex)

	logger.Info("Worker starting")
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}

func workerRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
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
