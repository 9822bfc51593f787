package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"ragis-server/internal/logger"
	"ragis-server/services"
)

const TaskReindex = "index:reindex"

type ReindexPayload struct {
	Reason string `json:"reason"`
}

// NewReindexTask builds a background reindex task.
func NewReindexTask(reason string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReindexPayload{Reason: reason})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskReindex,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor handles queued work on the worker binary.
type TaskProcessor struct {
	indexer *services.Indexer
	params  *services.ParamStore
}

func NewTaskProcessor(indexer *services.Indexer, params *services.ParamStore) *TaskProcessor {
	return &TaskProcessor{indexer: indexer, params: params}
}

func (p *TaskProcessor) HandleReindex(ctx context.Context, t *asynq.Task) error {
	var payload ReindexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing reindex task", "reason", payload.Reason)

	params := p.params.Resolve(ctx)
	result, err := p.indexer.Reindex(ctx, params)
	if err == services.ErrIndexerBusy {
		// Another pass is already doing the work; let asynq retry later.
		return err
	}
	if err != nil {
		return err
	}

	logger.Info("Reindex task finished",
		"new_documents", result.NewDocuments,
		"new_chunks", result.NewChunks,
		"message", result.Message)
	return nil
}
