package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"ragis-server/internal/ai"
	"ragis-server/internal/logger"
	"ragis-server/models"
)

// Indexer runs incremental reindex passes over the document directory.
// Content is deduplicated by fingerprint: a file whose hash is already in
// the store is skipped, whatever its path, and renames or copies never
// re-embed anything. Only one pass runs at a time.
type Indexer struct {
	store    VectorStore
	embedder ai.Embedder
	busy     atomic.Bool
}

// ErrIndexerBusy is returned when a reindex pass is already running.
var ErrIndexerBusy = errors.New("reindex already in progress")

func NewIndexer(store VectorStore, embedder ai.Embedder) *Indexer {
	return &Indexer{store: store, embedder: embedder}
}

// Busy reports whether a reindex pass is currently running.
func (ix *Indexer) Busy() bool {
	return ix.busy.Load()
}

// Reindex scans params.DataDir, indexes documents whose content hash is
// not yet in the store, and reports what it did. Files that cannot be
// read or extracted are logged and skipped so one bad scan never blocks
// the rest of the corpus.
func (ix *Indexer) Reindex(ctx context.Context, params models.Params) (models.IndexResult, error) {
	if !ix.busy.CompareAndSwap(false, true) {
		return models.IndexResult{}, ErrIndexerBusy
	}
	defer ix.busy.Store(false)

	chunker, err := NewChunker(params.ChunkSize, params.ChunkOverlap)
	if err != nil {
		return models.IndexResult{}, err
	}

	existing, err := ix.store.ExistingHashes(ctx)
	if err != nil {
		return models.IndexResult{}, fmt.Errorf("failed to read indexed hashes: %w", err)
	}

	loader := NewLoader(params.ExcludedSet())
	files, err := loader.ListFiles(params.DataDir)
	if err != nil {
		return models.IndexResult{}, err
	}

	docs := ix.collectNewDocuments(loader, files, existing)
	if len(docs) == 0 {
		logger.Info("Reindex complete, no new documents", "scanned", len(files))
		return models.IndexResult{Message: "no new documents"}, nil
	}

	chunks := chunker.SplitDocuments(docs)
	entries := make([]models.ChunkEntry, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := ix.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return models.IndexResult{}, fmt.Errorf("failed to embed chunk %s: %w", chunk.ID(), err)
		}
		entries = append(entries, models.ChunkEntry{
			ChunkID:     chunk.ID(),
			Text:        chunk.Text,
			Vector:      vector,
			Source:      chunk.Source,
			ContentHash: chunk.ContentHash,
			ChunkIndex:  chunk.Index,
			CreatedAt:   time.Now().UTC(),
		})
	}

	if err := ix.store.Upsert(ctx, entries); err != nil {
		return models.IndexResult{}, err
	}
	if err := ix.store.Persist(ctx); err != nil {
		return models.IndexResult{}, err
	}

	logger.Info("Reindex complete",
		"scanned", len(files),
		"new_documents", len(docs),
		"new_chunks", len(entries))

	return models.IndexResult{
		NewDocuments: len(docs),
		NewChunks:    len(entries),
		Message:      fmt.Sprintf("indexed %d new documents (%d chunks)", len(docs), len(entries)),
	}, nil
}

// collectNewDocuments fingerprints and extracts every file whose content
// is not already indexed. Duplicate content within the scan is indexed
// once, under the first path seen.
func (ix *Indexer) collectNewDocuments(loader *Loader, files []string, existing map[string]bool) []models.Document {
	seen := make(map[string]bool, len(files))
	var docs []models.Document
	for _, path := range files {
		hash, err := FileHash(path)
		if err != nil {
			logger.Warn("Skipping unreadable file", "path", path, "error", err)
			continue
		}
		if existing[hash] || seen[hash] {
			continue
		}

		text, err := loader.ExtractFile(path)
		if err != nil {
			logger.Warn("Skipping file with failed extraction", "path", path, "error", err)
			continue
		}
		if text == "" {
			logger.Warn("Skipping empty document", "path", path)
			continue
		}

		seen[hash] = true
		docs = append(docs, models.Document{
			Text:        text,
			Source:      path,
			ContentHash: hash,
		})
	}
	return docs
}
