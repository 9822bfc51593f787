package services

import (
	"context"
	"fmt"
	"strings"

	"ragis-server/internal/ai"
	"ragis-server/models"
)

// Gate decides whether a question is answerable from the indexed corpus
// before any generation happens. It protects against hallucinated answers
// on questions the corpus knows nothing about, and against throwaway
// inputs like greetings.
type Gate struct {
	store    VectorStore
	embedder ai.Embedder
}

// GateDecision is the outcome of a relevance check. Reason is set only
// when the question is rejected.
type GateDecision struct {
	Answerable bool   `json:"answerable"`
	Reason     string `json:"reason,omitempty"`
}

const (
	// Questions shorter than this are rejected outright.
	minQuestionWords = 4
	// Below this length the distance threshold tightens to shortQuestionThreshold.
	shortQuestionWords     = 6
	shortQuestionThreshold = 0.35
	// At least this many chunks must fall under the threshold.
	minRelevantMatches = 2
)

func NewGate(store VectorStore, embedder ai.Embedder) *Gate {
	return &Gate{store: store, embedder: embedder}
}

// Decide checks the question against the index. Short questions get a
// stricter distance threshold since they embed less distinctively.
func (g *Gate) Decide(ctx context.Context, question string, params models.Params) (GateDecision, error) {
	words := len(strings.Fields(question))
	if words < minQuestionWords {
		return GateDecision{Reason: "question too short, please ask a full question"}, nil
	}

	threshold := params.DistanceThreshold
	if words < shortQuestionWords && threshold > shortQuestionThreshold {
		threshold = shortQuestionThreshold
	}

	vector, err := g.embedder.Embed(ctx, question)
	if err != nil {
		return GateDecision{}, fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := g.store.Search(ctx, vector, params.TopK)
	if err != nil {
		return GateDecision{}, err
	}
	if len(results) == 0 {
		return GateDecision{Reason: "no indexed content matches the question"}, nil
	}

	relevant := 0
	for _, result := range results {
		if result.Distance <= threshold {
			relevant++
		}
	}
	if relevant < minRelevantMatches {
		return GateDecision{Reason: "not enough relevant content in the corpus"}, nil
	}

	return GateDecision{Answerable: true}, nil
}
