package services

import (
	"context"
	"testing"
)

func TestScheduledReindexRunsAfterStartupContextCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.txt", "Scheduled indexing should still work.")

	store := NewMemoryStore()
	indexer := NewIndexer(store, &fakeEmbedder{})
	params := NewParamStore(nil, dir)
	s := NewScheduler(indexer, params)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	cancel()

	s.runReindex()

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Chunks == 0 {
		t.Fatal("scheduled reindex indexed nothing after startup context cancellation")
	}
}
