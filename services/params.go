package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"ragis-server/internal/logger"
	"ragis-server/models"
)

// paramsKey is the Redis hash holding runtime-tunable parameters.
const paramsKey = "ragis:parameters"

// defaultSystemDirective steers generation towards grounded answers.
const defaultSystemDirective = "You are an assistant answering questions about a private document corpus. " +
	"Answer only from the provided context. If the context does not contain the answer, say you do not have enough information. " +
	"Cite the source file when it helps."

// DefaultParams are the values used until an operator overrides them.
func DefaultParams(dataDir string) models.Params {
	return models.Params{
		LLMModel:          "gemini-2.0-flash",
		EmbedModel:        "text-embedding-004",
		ChunkSize:         1500,
		ChunkOverlap:      200,
		TopK:              8,
		DistanceThreshold: 0.6,
		ExcludedExts:      []string{".md", ".csv", ".png", ".jpg", ".jpeg"},
		CronReindex:       "0 3 * * *",
		DataDir:           dataDir,
		SystemDirective:   defaultSystemDirective,
		Models:            []string{"gemini-2.0-flash", "gemini-2.5-flash", "gemini-2.5-pro"},
	}
}

// ParamStore keeps operator-tunable parameters in a Redis hash so that
// changes apply to every replica without a restart. With no Redis client
// it serves the defaults, which keeps tests and single-binary runs
// simple.
type ParamStore struct {
	rdb      *redis.Client
	defaults models.Params
}

func NewParamStore(rdb *redis.Client, dataDir string) *ParamStore {
	return &ParamStore{rdb: rdb, defaults: DefaultParams(dataDir)}
}

// Resolve merges stored overrides over the defaults into one snapshot.
// Unparseable overrides are logged and ignored rather than breaking the
// pipeline.
func (p *ParamStore) Resolve(ctx context.Context) models.Params {
	params := p.defaults
	overrides, err := p.All(ctx)
	if err != nil {
		logger.Warn("Failed to load parameter overrides, using defaults", "error", err)
		return params
	}

	for key, value := range overrides {
		if err := applyOverride(&params, key, value); err != nil {
			logger.Warn("Ignoring invalid parameter override", "key", key, "value", value, "error", err)
		}
	}
	return params
}

// Get returns one stored override, or "" when none is set.
func (p *ParamStore) Get(ctx context.Context, key string) (string, error) {
	if p.rdb == nil {
		return "", nil
	}
	value, err := p.rdb.HGet(ctx, paramsKey, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read parameter %s: %w", key, err)
	}
	return value, nil
}

// Set validates and stores one override.
func (p *ParamStore) Set(ctx context.Context, key, value string) error {
	probe := p.defaults
	if err := applyOverride(&probe, key, value); err != nil {
		return err
	}
	if p.rdb == nil {
		return fmt.Errorf("parameter store is not configured")
	}
	if err := p.rdb.HSet(ctx, paramsKey, key, value).Err(); err != nil {
		return fmt.Errorf("failed to store parameter %s: %w", key, err)
	}
	return nil
}

// All returns the raw stored overrides.
func (p *ParamStore) All(ctx context.Context) (map[string]string, error) {
	if p.rdb == nil {
		return nil, nil
	}
	values, err := p.rdb.HGetAll(ctx, paramsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load parameters: %w", err)
	}
	return values, nil
}

func applyOverride(params *models.Params, key, value string) error {
	switch key {
	case "llm_model":
		params.LLMModel = value
	case "embed_model":
		params.EmbedModel = value
	case "system_directive":
		params.SystemDirective = value
	case "cron_reindex":
		if len(strings.Fields(value)) != 5 {
			return fmt.Errorf("cron expression must have 5 fields")
		}
		params.CronReindex = value
	case "excluded_exts":
		params.ExcludedExts = strings.Split(value, ",")
	case "chunk_size":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("chunk_size must be a positive integer")
		}
		params.ChunkSize = n
	case "chunk_overlap":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("chunk_overlap must be a non-negative integer")
		}
		params.ChunkOverlap = n
	case "top_k":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("top_k must be a positive integer")
		}
		params.TopK = n
	case "distance_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("distance_threshold must be between 0 and 2")
		}
		params.DistanceThreshold = f
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	return nil
}
