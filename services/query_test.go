package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ragis-server/models"
)

type fakeGenerator struct {
	calls   int
	prompt  string
	answer  string
	failErr error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt, _ string) (string, error) {
	g.calls++
	g.prompt = prompt
	if g.failErr != nil {
		return "", g.failErr
	}
	return g.answer, nil
}

func queryParams() models.Params {
	return models.Params{
		TopK:              8,
		DistanceThreshold: 0.6,
		SystemDirective:   "Answer only from the provided context.",
		LLMModel:          "gemini-2.0-flash",
	}
}

func TestAnswerEmptyIndexIsError(t *testing.T) {
	gen := &fakeGenerator{answer: "should not be used"}
	q := NewQueryService(&presetStore{}, &fakeEmbedder{}, gen)

	_, _, err := q.Answer(context.Background(), "what does the handbook say", queryParams())
	if !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatal("generator called despite empty retrieval")
	}
}

func TestAnswerNoChunkUnderThresholdSkipsGeneration(t *testing.T) {
	store := &presetStore{results: []models.SearchResult{
		resultAt(0.8), resultAt(0.9),
	}}
	gen := &fakeGenerator{answer: "should not be used"}
	q := NewQueryService(store, &fakeEmbedder{}, gen)

	answer, sources, err := q.Answer(context.Background(), "what does the handbook say", queryParams())
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != "" {
		t.Fatalf("expected empty answer, got %q", answer)
	}
	if sources == nil || len(sources) != 0 {
		t.Fatalf("expected empty source list, got %v", sources)
	}
	if gen.calls != 0 {
		t.Fatal("generator called despite no relevant chunks")
	}
}

func TestAnswerTruncatesContextToFiveChunks(t *testing.T) {
	var results []models.SearchResult
	for i := 0; i < 8; i++ {
		r := resultAt(0.1 + float64(i)*0.05)
		r.Entry.ChunkID = fmt.Sprintf("h-%d", i)
		r.Entry.ChunkIndex = i
		r.Entry.Text = fmt.Sprintf("chunk body %d", i)
		results = append(results, r)
	}
	store := &presetStore{results: results}
	gen := &fakeGenerator{answer: "final answer"}
	q := NewQueryService(store, &fakeEmbedder{}, gen)

	answer, sources, err := q.Answer(context.Background(), "what does the handbook say", queryParams())
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != "final answer" {
		t.Fatalf("unexpected answer: %q", answer)
	}
	if len(sources) != 5 {
		t.Fatalf("expected 5 sources, got %d", len(sources))
	}
	if got := strings.Count(gen.prompt, "\n\n---\n\n"); got != 4 {
		t.Fatalf("expected 4 context separators for 5 blocks, got %d", got)
	}
	if strings.Contains(gen.prompt, "chunk body 5") {
		t.Fatal("sixth-nearest chunk leaked into the prompt")
	}
	if !strings.Contains(gen.prompt, "Answer only from the provided context.") {
		t.Fatal("system directive missing from prompt")
	}
}

func TestAnswerSourceFormatting(t *testing.T) {
	r := resultAt(0.1234)
	r.Entry.Source = "/data/handbook.pdf"
	r.Entry.ChunkID = "abc123-4"
	r.Entry.ChunkIndex = 4
	store := &presetStore{results: []models.SearchResult{r, resultAt(0.2)}}
	gen := &fakeGenerator{answer: "ok"}
	q := NewQueryService(store, &fakeEmbedder{}, gen)

	_, sources, err := q.Answer(context.Background(), "what does the handbook say", queryParams())
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Source != "/data/handbook.pdf" {
		t.Fatalf("unexpected source path: %q", sources[0].Source)
	}
	if sources[0].Distance != "0.123" {
		t.Fatalf("distance not formatted to three decimals: %q", sources[0].Distance)
	}
	if sources[0].ChunkIndex != "4" {
		t.Fatalf("chunk index citation not stringified index: %q", sources[0].ChunkIndex)
	}
	if !strings.Contains(gen.prompt, "Source: /data/handbook.pdf | Chunk: 4 | Distance: 0.123") {
		t.Fatalf("context block header malformed:\n%s", gen.prompt)
	}
}

func TestAnswerPropagatesGeneratorFailure(t *testing.T) {
	store := &presetStore{results: []models.SearchResult{resultAt(0.1), resultAt(0.2)}}
	gen := &fakeGenerator{failErr: errors.New("model unavailable")}
	q := NewQueryService(store, &fakeEmbedder{}, gen)

	_, _, err := q.Answer(context.Background(), "what does the handbook say", queryParams())
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("generator failure not propagated: %v", err)
	}
}
