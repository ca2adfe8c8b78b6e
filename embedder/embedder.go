// Package embedder produces the dense vectors used for semantic
// retrieval. Providers are built lazily and held for the process
// lifetime by the Registry, so concurrent first users share one
// instance and one connection pool.
package embedder

import "context"

// Embedder converts text to vectors matching the collection dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
	Close() error
}
