package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ragis-server/models"
)

// MongoStore keeps chunk embeddings in the "chunks" collection. When an
// Atlas vector search index is available it delegates ranking to
// $vectorSearch; otherwise it scans the collection and ranks in process,
// which is fine for corpora of a few thousand chunks.
type MongoStore struct {
	collection       *mongo.Collection
	vectorSearch     bool
	vectorIndexName  string
	searchCandidates int
}

func NewMongoStore(db *mongo.Database, vectorSearch bool, vectorIndexName string) *MongoStore {
	return &MongoStore{
		collection:       db.Collection("chunks"),
		vectorSearch:     vectorSearch,
		vectorIndexName:  vectorIndexName,
		searchCandidates: 200,
	}
}

func (s *MongoStore) Upsert(ctx context.Context, entries []models.ChunkEntry) error {
	if len(entries) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(entries))
	for _, entry := range entries {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"chunk_id": entry.ChunkID}).
			SetUpdate(bson.M{"$set": entry}).
			SetUpsert(true))
	}

	opts := options.BulkWrite().SetOrdered(false)
	if _, err := s.collection.BulkWrite(ctx, writes, opts); err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}
	return nil
}

func (s *MongoStore) ExistingHashes(ctx context.Context) (map[string]bool, error) {
	values, err := s.collection.Distinct(ctx, "content_hash", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list content hashes: %w", err)
	}

	hashes := make(map[string]bool, len(values))
	for _, v := range values {
		if hash, ok := v.(string); ok && hash != "" {
			hashes[hash] = true
		}
	}
	return hashes, nil
}

func (s *MongoStore) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if s.vectorSearch {
		return s.searchAtlas(ctx, vector, k)
	}
	return s.searchScan(ctx, vector, k)
}

func (s *MongoStore) searchAtlas(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	candidates := k * 10
	if candidates > s.searchCandidates {
		candidates = s.searchCandidates
	}

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.M{
			"index":         s.vectorIndexName,
			"path":          "vector",
			"queryVector":   vector,
			"numCandidates": candidates,
			"limit":         k,
		}}},
		{{Key: "$addFields", Value: bson.M{
			"search_score": bson.M{"$meta": "vectorSearchScore"},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		models.ChunkEntry `bson:",inline"`
		SearchScore       float64 `bson:"search_score"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	results := make([]models.SearchResult, 0, len(rows))
	for _, row := range rows {
		// Atlas reports (1 + cosine) / 2 for cosine indexes.
		results = append(results, models.SearchResult{
			Entry:    row.ChunkEntry,
			Distance: 2 * (1 - row.SearchScore),
		})
	}
	return rankByDistance(results, k), nil
}

func (s *MongoStore) searchScan(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.SearchResult
	for cursor.Next(ctx) {
		var entry models.ChunkEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode chunk: %w", err)
		}
		results = append(results, models.SearchResult{
			Entry:    entry,
			Distance: CosineDistance(entry.Vector, vector),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("chunk scan failed: %w", err)
	}
	return rankByDistance(results, k), nil
}

func (s *MongoStore) Stats(ctx context.Context) (models.IndexStats, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return models.IndexStats{}, fmt.Errorf("failed to count chunks: %w", err)
	}

	hashes, err := s.collection.Distinct(ctx, "content_hash", bson.M{})
	if err != nil {
		return models.IndexStats{}, fmt.Errorf("failed to count content hashes: %w", err)
	}

	opts := options.Find().
		SetLimit(5).
		SetProjection(bson.M{"chunk_id": 1, "source": 1, "content_hash": 1})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return models.IndexStats{}, fmt.Errorf("failed to sample chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var sample []map[string]string
	for cursor.Next(ctx) {
		var entry models.ChunkEntry
		if err := cursor.Decode(&entry); err != nil {
			continue
		}
		sample = append(sample, map[string]string{
			"chunk_id":     entry.ChunkID,
			"source":       entry.Source,
			"content_hash": entry.ContentHash,
		})
	}

	return models.IndexStats{
		Chunks:         count,
		ContentHashes:  int64(len(hashes)),
		SampleMetadata: sample,
	}, nil
}

// Persist is a no-op: every upsert is already durable in MongoDB.
func (s *MongoStore) Persist(_ context.Context) error { return nil }
