// Package embedding turns text into fixed-length vectors via a local ONNX model or an
// OpenAI-compatible API, with optional caching.
package embedding

import (
	"context"
	"errors"
)

// ErrEmbeddingFailed marks errors returned by an embedding provider.
var ErrEmbeddingFailed = errors.New("embedding provider error")

// Embedder produces vector embeddings for text. The same embedder (model and version) must
// be used to build an index and to classify against it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// embedEach calls Embed for every text in order.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
