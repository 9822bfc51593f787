package services

import (
	"context"
	"math"
	"sort"

	"ragis-server/models"
)

// VectorStore is the persistent nearest-neighbor index over chunk
// embeddings. It is the sole source of truth for "has this content been
// indexed", via the set of content hashes in its metadata. Implementations
// must treat a duplicate chunk_id write as an overwrite, never a second
// entry, and must be safe for concurrent reads.
type VectorStore interface {
	// Upsert writes entries keyed by chunk_id.
	Upsert(ctx context.Context, entries []models.ChunkEntry) error

	// ExistingHashes returns every content_hash present in the index.
	ExistingHashes(ctx context.Context) (map[string]bool, error)

	// Search returns up to k entries ordered by ascending distance to the
	// query vector.
	Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error)

	// Stats summarises the index for diagnostics.
	Stats(ctx context.Context) (models.IndexStats, error)

	// Persist flushes the index to durable storage where the backend
	// needs an explicit flush.
	Persist(ctx context.Context) error
}

// CosineDistance returns 1 - cosine similarity, clamped at zero so float
// noise never produces a negative distance. Smaller is more similar.
func CosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	dist := 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
	if dist < 0 {
		return 0
	}
	return dist
}

// rankByDistance sorts results ascending by distance and truncates to k.
func rankByDistance(results []models.SearchResult, k int) []models.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
