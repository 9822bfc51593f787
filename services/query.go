package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ragis-server/internal/ai"
	"ragis-server/models"
)

// QueryService answers a question from the indexed corpus: retrieve,
// filter by distance, build a cited context window, generate.
type QueryService struct {
	store     VectorStore
	embedder  ai.Embedder
	generator ai.Generator
}

// maxContextChunks caps how many retrieved chunks reach the prompt.
const maxContextChunks = 5

const contextSeparator = "\n\n---\n\n"

// ErrEmptyIndex is returned when retrieval yields nothing at all, which
// means the index is empty or the embedding failed silently upstream.
var ErrEmptyIndex = errors.New("no search results from index")

func NewQueryService(store VectorStore, embedder ai.Embedder, generator ai.Generator) *QueryService {
	return &QueryService{store: store, embedder: embedder, generator: generator}
}

// Answer runs the full retrieval pipeline. When retrieval succeeds but no
// chunk passes the distance threshold, it returns an empty answer and no
// sources without calling the model; the caller decides how to phrase the
// refusal.
func (q *QueryService) Answer(ctx context.Context, question string, params models.Params) (string, []models.Source, error) {
	vector, err := q.embedder.Embed(ctx, question)
	if err != nil {
		return "", nil, fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := q.store.Search(ctx, vector, params.TopK)
	if err != nil {
		return "", nil, err
	}
	if len(results) == 0 {
		return "", nil, ErrEmptyIndex
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	var kept []models.SearchResult
	for _, result := range results {
		if result.Distance <= params.DistanceThreshold {
			kept = append(kept, result)
		}
	}
	if len(kept) == 0 {
		return "", []models.Source{}, nil
	}
	if len(kept) > maxContextChunks {
		kept = kept[:maxContextChunks]
	}

	prompt := buildPrompt(params.SystemDirective, question, kept)
	answer, err := q.generator.Generate(ctx, prompt, params.LLMModel)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	sources := make([]models.Source, 0, len(kept))
	for _, result := range kept {
		sources = append(sources, models.Source{
			Source:     result.Entry.Source,
			Distance:   fmt.Sprintf("%.3f", result.Distance),
			ChunkIndex: strconv.Itoa(result.Entry.ChunkIndex),
		})
	}

	return answer, sources, nil
}

func buildPrompt(directive, question string, results []models.SearchResult) string {
	contextText := "No relevant context found."
	if len(results) > 0 {
		blocks := make([]string, 0, len(results))
		for _, result := range results {
			blocks = append(blocks, fmt.Sprintf("Source: %s | Chunk: %d | Distance: %.3f\n%s",
				result.Entry.Source, result.Entry.ChunkIndex, result.Distance, result.Entry.Text))
		}
		contextText = strings.Join(blocks, contextSeparator)
	}

	var sb strings.Builder
	if directive != "" {
		sb.WriteString(directive)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Context:\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}
