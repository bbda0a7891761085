// Package builder embeds a labeled corpus and packages the vectors into an index artifact.
package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/intently/internal/artifact"
	"github.com/hyperjump/intently/internal/corpus"
	"github.com/hyperjump/intently/internal/embedding"
	"github.com/hyperjump/intently/internal/vector"
)

var (
	// ErrEmptyCorpus is returned when there is nothing to build from.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrEmbeddingFailure is returned when the embedder fails or returns unusable vectors.
	ErrEmbeddingFailure = errors.New("embedding failure")
)

// DefaultBatchSize is the number of texts sent to the embedder per call.
const DefaultBatchSize = 64

// Builder turns examples into an artifact. It is not safe for concurrent use.
type Builder struct {
	embedder  embedding.Embedder
	model     string
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithModel records the embedding model name in built artifacts.
func WithModel(model string) Option {
	return func(b *Builder) {
		b.model = model
	}
}

// WithBatchSize sets how many texts are embedded per call.
func WithBatchSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// New creates a builder that embeds with e.
func New(e embedding.Embedder, opts ...Option) *Builder {
	b := &Builder{
		embedder:  e,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build embeds every example in input order, L2-normalizes the vectors and returns an
// artifact whose vectors and labels are parallel. Duplicate texts are kept.
// On any failure no artifact is returned.
func (b *Builder) Build(ctx context.Context, examples []corpus.Example) (*artifact.Artifact, error) {
	if len(examples) == 0 {
		return nil, ErrEmptyCorpus
	}
	start := time.Now()

	dims := b.embedder.Dimensions()
	vectors := make([][]float32, 0, len(examples))
	labels := make([]string, 0, len(examples))

	for lo := 0; lo < len(examples); lo += b.batchSize {
		hi := min(lo+b.batchSize, len(examples))
		texts := make([]string, hi-lo)
		for i, ex := range examples[lo:hi] {
			texts[i] = ex.Text
		}

		embs, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: examples %d-%d: %w", ErrEmbeddingFailure, lo, hi-1, err)
		}
		if len(embs) != len(texts) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingFailure, len(embs), len(texts))
		}

		for i, emb := range embs {
			pos := lo + i
			if len(emb) == 0 {
				return nil, fmt.Errorf("%w: example %d: empty embedding", ErrEmbeddingFailure, pos)
			}
			if dims <= 0 {
				dims = len(emb)
			}
			if len(emb) != dims {
				return nil, fmt.Errorf("%w: example %d: %d dimensions, want %d", ErrEmbeddingFailure, pos, len(emb), dims)
			}
			unit, err := vector.Normalize(emb)
			if err != nil {
				return nil, fmt.Errorf("%w: example %d: %w", ErrEmbeddingFailure, pos, err)
			}
			vectors = append(vectors, unit)
			labels = append(labels, examples[pos].Label)
		}

		b.logger.Debug("embedded batch", zap.Int("from", lo), zap.Int("to", hi-1))
	}

	a := &artifact.Artifact{
		ID:         uuid.NewString(),
		Model:      b.model,
		CreatedAt:  b.now().UTC(),
		Dimensions: dims,
		Vectors:    vectors,
		Labels:     labels,
	}
	b.logger.Info("index built",
		zap.String("id", a.ID),
		zap.Int("entries", a.Size()),
		zap.Int("dimensions", dims),
		zap.Int("labels", len(corpus.Labels(examples))),
		zap.Duration("duration", time.Since(start)),
	)
	return a, nil
}
