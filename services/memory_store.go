package services

import (
	"context"
	"sync"

	"ragis-server/models"
)

// MemoryStore is an in-process VectorStore using brute-force cosine
// ranking. It backs tests and single-node runs without MongoDB.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]int
	entries []models.ChunkEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) Upsert(_ context.Context, entries []models.ChunkEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if idx, ok := s.byID[entry.ChunkID]; ok {
			s.entries[idx] = entry
			continue
		}
		s.byID[entry.ChunkID] = len(s.entries)
		s.entries = append(s.entries, entry)
	}
	return nil
}

func (s *MemoryStore) ExistingHashes(_ context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hashes := make(map[string]bool)
	for _, entry := range s.entries {
		if entry.ContentHash != "" {
			hashes[entry.ContentHash] = true
		}
	}
	return hashes, nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]models.SearchResult, 0, len(s.entries))
	for _, entry := range s.entries {
		results = append(results, models.SearchResult{
			Entry:    entry,
			Distance: CosineDistance(entry.Vector, vector),
		})
	}
	return rankByDistance(results, k), nil
}

func (s *MemoryStore) Stats(_ context.Context) (models.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hashes := make(map[string]bool)
	sample := make([]map[string]string, 0, 5)
	for _, entry := range s.entries {
		hashes[entry.ContentHash] = true
		if len(sample) < 5 {
			sample = append(sample, map[string]string{
				"chunk_id":     entry.ChunkID,
				"source":       entry.Source,
				"content_hash": entry.ContentHash,
			})
		}
	}
	return models.IndexStats{
		Chunks:         int64(len(s.entries)),
		ContentHashes:  int64(len(hashes)),
		SampleMetadata: sample,
	}, nil
}

func (s *MemoryStore) Persist(_ context.Context) error { return nil }
