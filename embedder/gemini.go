package embedder

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

const geminiBatchConcurrency = 5

// GeminiEmbedder produces embeddings through the Gemini API with the
// output dimensionality pinned to the collection's vector size.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
	timeout   time.Duration
}

// GeminiConfig configures the Gemini embedder.
type GeminiConfig struct {
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// NewGeminiEmbedder creates the embedder and its API client.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Gemini embedder")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-embedding-001"
	}
	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = 384
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
		timeout:   timeout,
	}, nil
}

// Embed converts one text to a vector. The response dimensionality is
// validated so a misconfigured model cannot poison the collection.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	outputDim := int32(e.dimension)
	resp, err := e.client.Models.EmbedContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &outputDim})
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("Gemini returned no embeddings")
	}

	vector := resp.Embeddings[0].Values
	if len(vector) != e.dimension {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(vector), e.dimension)
	}
	return vector, nil
}

// EmbedBatch embeds texts with bounded concurrency; the API has no
// batch endpoint worth using at our sizes.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(geminiBatchConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			vector, err := e.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("failed to embed text %d: %w", i, err)
			}
			results[i] = vector
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Dimension returns the pinned output dimensionality.
func (e *GeminiEmbedder) Dimension() int { return e.dimension }

// Model returns the model name in use.
func (e *GeminiEmbedder) Model() string { return e.model }

// Close releases nothing today; the genai client has no teardown.
func (e *GeminiEmbedder) Close() error { return nil }

var _ Embedder = (*GeminiEmbedder)(nil)
