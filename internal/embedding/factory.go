package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/intently/internal/config"
)

// New creates the embedder selected by cfg.Embedding.Provider and wraps it with the
// Redis cache when cfg.Cache lists addresses, or an in-memory LRU cache otherwise.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ec := cfg.Embedding

	var inner Embedder
	switch ec.Provider {
	case "onnx":
		tok, err := LoadWordPieceTokenizer(ec.VocabPathOrDefault())
		if err != nil {
			return nil, fmt.Errorf("onnx tokenizer: %w", err)
		}
		e, err := NewONNXEmbedder(ec.ModelPath, tok, ec.Dimensions, ec.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("onnx embedder: %w", err)
		}
		inner = e
	case "openai":
		e, err := NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		inner = e
	case "mock":
		inner = NewMockEmbedder(ec.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", ec.Provider)
	}

	if cfg.Cache.Enabled() {
		rc, err := NewRedisCache(RedisCacheConfig{
			Addrs:    cfg.Cache.RedisAddrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			Prefix:   cfg.Cache.Prefix,
			TTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		}, logger)
		if err != nil {
			_ = inner.Close()
			return nil, err
		}
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			_ = inner.Close()
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		logger.Info("using redis embedding cache", zap.Strings("addrs", cfg.Cache.RedisAddrs))
		return NewCachedEmbedder(inner, rc, "redis"), nil
	}
	if ec.CacheSize > 0 {
		return NewCachedEmbedder(inner, NewMemoryCache(ec.CacheSize), "memory"), nil
	}
	return inner, nil
}
