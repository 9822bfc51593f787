package services

import (
	"context"
	"testing"

	"ragis-server/models"
)

// presetStore returns canned search results regardless of the query.
type presetStore struct {
	MemoryStore
	results []models.SearchResult
}

func (s *presetStore) Search(_ context.Context, _ []float32, k int) ([]models.SearchResult, error) {
	results := append([]models.SearchResult(nil), s.results...)
	return rankByDistance(results, k), nil
}

func resultAt(distance float64) models.SearchResult {
	return models.SearchResult{
		Entry:    models.ChunkEntry{ChunkID: "h-0", Text: "chunk text", Source: "/data/doc.txt"},
		Distance: distance,
	}
}

func gateParams() models.Params {
	return models.Params{TopK: 8, DistanceThreshold: 0.6}
}

func TestGateRejectsShortQuestions(t *testing.T) {
	g := NewGate(&presetStore{}, &fakeEmbedder{})

	decision, err := g.Decide(context.Background(), "what is this", gateParams())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decision.Answerable {
		t.Fatal("three-word question should be rejected")
	}
	if decision.Reason == "" {
		t.Fatal("rejection must carry a reason")
	}
}

func TestGateRejectsEmptyIndex(t *testing.T) {
	g := NewGate(&presetStore{}, &fakeEmbedder{})

	decision, err := g.Decide(context.Background(), "what does the handbook say about leave", gateParams())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decision.Answerable {
		t.Fatal("empty index should not be answerable")
	}
}

func TestGateRequiresTwoRelevantMatches(t *testing.T) {
	store := &presetStore{results: []models.SearchResult{
		resultAt(0.2), resultAt(0.9), resultAt(0.95),
	}}
	g := NewGate(store, &fakeEmbedder{})

	decision, err := g.Decide(context.Background(), "what does the handbook say about leave", gateParams())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decision.Answerable {
		t.Fatal("one relevant match should not pass the gate")
	}

	store.results = append(store.results, resultAt(0.3))
	decision, err = g.Decide(context.Background(), "what does the handbook say about leave", gateParams())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !decision.Answerable {
		t.Fatalf("two relevant matches should pass the gate: %+v", decision)
	}
}

func TestGateTightensThresholdForShortQuestions(t *testing.T) {
	store := &presetStore{results: []models.SearchResult{
		resultAt(0.5), resultAt(0.55),
	}}
	g := NewGate(store, &fakeEmbedder{})

	// Five words: 0.5 and 0.55 exceed the tightened 0.35 threshold.
	decision, err := g.Decide(context.Background(), "what about the leave policy", gateParams())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decision.Answerable {
		t.Fatal("short question should use the tightened threshold")
	}

	// Six words: the configured 0.6 threshold applies again.
	decision, err = g.Decide(context.Background(), "what about the annual leave policy", gateParams())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !decision.Answerable {
		t.Fatalf("full-length question should pass: %+v", decision)
	}
}
