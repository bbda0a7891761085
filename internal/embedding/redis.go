package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// RedisCacheConfig holds connection settings for a shared embedding cache.
type RedisCacheConfig struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// Prefix namespaces keys; it should identify the embedding model so that vectors of
	// different models never mix.
	Prefix string
	TTL    time.Duration
}

// RedisCache stores embeddings in Redis as little-endian float32 blobs keyed by SHA-256 of the text.
// Cache failures are logged and treated as misses.
type RedisCache struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache connects to Redis via rueidis.
func NewRedisCache(cfg RedisCacheConfig, logger *zap.Logger) (*RedisCache, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis addrs is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return newRedisCache(client, cfg.Prefix, cfg.TTL, logger), nil
}

func newRedisCache(client rueidis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Get returns the embedding stored for key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	cmd := c.client.B().Get().Key(c.key(key)).Build()
	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.Warn("embedding cache get failed", zap.Error(err))
		}
		return nil, false
	}
	vec, ok := decodeVector(data)
	if !ok {
		c.logger.Warn("embedding cache entry malformed", zap.Int("bytes", len(data)))
	}
	return vec, ok
}

// Set stores the embedding for key.
func (c *RedisCache) Set(ctx context.Context, key string, value []float32) {
	var cmd rueidis.Completed
	if c.ttl > 0 {
		cmd = c.client.B().Set().Key(c.key(key)).Value(rueidis.BinaryString(encodeVector(value))).Ex(c.ttl).Build()
	} else {
		cmd = c.client.B().Set().Key(c.key(key)).Value(rueidis.BinaryString(encodeVector(value))).Build()
	}
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Warn("embedding cache set failed", zap.Error(err))
	}
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Do(ctx, c.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (c *RedisCache) Close() {
	c.client.Close()
}

func (c *RedisCache) key(text string) string {
	h := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(h[:])
}

func encodeVector(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) ([]float32, bool) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, false
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, true
}
