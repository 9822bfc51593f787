package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"ragis-server/internal/logger"
)

// Scheduler runs the nightly reindex pass.
type Scheduler struct {
	scheduler *gocron.Scheduler
	indexer   *Indexer
	params    *ParamStore
}

func NewScheduler(indexer *Indexer, params *ParamStore) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Scheduler{scheduler: s, indexer: indexer, params: params}
}

// Start registers the reindex job with the configured cron expression and
// starts the scheduler in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	params := s.params.Resolve(ctx)
	_, err := s.scheduler.Cron(params.CronReindex).Tag("reindex").Do(s.runReindex)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	logger.Info("Reindex scheduler started", "cron", params.CronReindex)
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// runReindex owns its context: a pass that is already underway finishes
// even if the context that scheduled it has been cancelled since.
func (s *Scheduler) runReindex() {
	ctx := context.Background()
	params := s.params.Resolve(ctx)
	result, err := s.indexer.Reindex(ctx, params)
	if err == ErrIndexerBusy {
		logger.Warn("Scheduled reindex skipped, another pass is running")
		return
	}
	if err != nil {
		logger.Error("Scheduled reindex failed", "error", err)
		return
	}
	logger.Info("Scheduled reindex finished",
		"new_documents", result.NewDocuments,
		"new_chunks", result.NewChunks)
}
