package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"ragis-server/internal/logger"
)

// Embedder turns text into a fixed-length vector. Deterministic for
// identical text and model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces text from a prompt with the given model identifier.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// GeminiClient provides both capabilities against the Google Generative AI
// API, guarded by a circuit breaker and a request-rate limiter. Construction
// is expensive; callers share a single instance.
type GeminiClient struct {
	client      *genai.Client
	embedModel  string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

func NewGeminiClient(apiKey, embedModel string) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// Conservative default; free tier allows ~10 RPM
	rateLimiter := rate.NewLimiter(rate.Limit(10.0*0.9/60.0), 2)

	return &GeminiClient{
		client:      client,
		embedModel:  embedModel,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

// Embed returns the embedding vector for the given text.
func (gc *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", gc.embedModel),
		attribute.Int("gemini.text_length", len(text)),
	)

	model := gc.client.EmbeddingModel(gc.embedModel)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return resp.Embedding.Values, nil
}

// Generate runs the generative model at deterministic decoding
// (temperature 0) and returns the concatenated text parts.
func (gc *GeminiClient) Generate(ctx context.Context, prompt, modelName string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", modelName),
		attribute.Int("gemini.prompt_length", len(prompt)),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(modelName)
		model.SetTemperature(0)

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", fmt.Errorf("generation failed: %w", err)
	}

	resp := result.(*genai.GenerateContentResponse)
	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("no text returned by model %s", modelName)
	}

	if resp.UsageMetadata != nil {
		span.SetAttributes(attribute.Int("gemini.total_tokens", int(resp.UsageMetadata.TotalTokenCount)))
	}
	span.SetAttributes(attribute.Int("gemini.answer_length", len(text)))

	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	total := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				total += string(text)
			}
		}
	}
	return total
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
