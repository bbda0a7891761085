// Package config provides configuration loading and structs for the intently server and tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv overrides embedding.api_key when set.
const APIKeyEnv = "INTENTLY_EMBEDDING_API_KEY"

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	LogLevel   string           `yaml:"log_level"`
	Server     ServerConfig     `yaml:"server"`
	Artifact   ArtifactConfig   `yaml:"artifact"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Cache      CacheConfig      `yaml:"cache"`
	Corpus     CorpusConfig     `yaml:"corpus"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ArtifactConfig locates the persisted index.
type ArtifactConfig struct {
	Path string `yaml:"path"`
	// Watch reloads the artifact when the file changes.
	Watch *bool `yaml:"watch"`
}

// WatchOrDefault returns whether to watch the artifact; defaults to true when unset.
func (a *ArtifactConfig) WatchOrDefault() bool {
	if a.Watch != nil {
		return *a.Watch
	}
	return true
}

// ClassifierConfig holds the default vote parameters.
type ClassifierConfig struct {
	K         int      `yaml:"k"`
	Threshold *float64 `yaml:"threshold"`
}

// ThresholdOrDefault returns the configured threshold, or 0.5 when unset.
func (c *ClassifierConfig) ThresholdOrDefault() float64 {
	if c.Threshold != nil {
		return *c.Threshold
	}
	return 0.5
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "onnx", "openai" or "mock".
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	ModelPath string `yaml:"model_path"`
	// VocabPath is the WordPiece vocab.txt for the ONNX model; defaults to vocab.txt
	// next to ModelPath.
	VocabPath  string `yaml:"vocab_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
}

// VocabPathOrDefault returns VocabPath, or vocab.txt in ModelPath's directory when unset.
func (e *EmbeddingConfig) VocabPathOrDefault() string {
	if e.VocabPath != "" {
		return e.VocabPath
	}
	return filepath.Join(filepath.Dir(e.ModelPath), "vocab.txt")
}

// CacheConfig configures an optional shared Redis embedding cache.
type CacheConfig struct {
	RedisAddrs []string `yaml:"redis_addrs"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	DB         int      `yaml:"db"`
	Prefix     string   `yaml:"prefix"`
	TTLSeconds int      `yaml:"ttl_seconds"`
}

// Enabled reports whether a Redis cache is configured.
func (c *CacheConfig) Enabled() bool {
	return len(c.RedisAddrs) > 0
}

// CorpusConfig locates the labeled corpus used by the build command.
type CorpusConfig struct {
	Path  string `yaml:"path"`
	Sheet string `yaml:"sheet"`
	Table string `yaml:"table"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed, or if values are out of range.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.Embedding.APIKey = key
	}

	configDir := filepath.Dir(path)
	cfg.Artifact.Path = expandPath(cfg.Artifact.Path, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	if cfg.Embedding.VocabPath != "" {
		cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	}
	if cfg.Corpus.Path != "" {
		cfg.Corpus.Path = expandPath(cfg.Corpus.Path, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that defaults cannot fix.
func (c *Config) Validate() error {
	if c.Classifier.K <= 0 {
		return fmt.Errorf("classifier.k must be positive, got %d", c.Classifier.K)
	}
	if t := c.Classifier.ThresholdOrDefault(); t < -1 || t > 1 {
		return fmt.Errorf("classifier.threshold must be in [-1, 1], got %v", t)
	}
	switch c.Embedding.Provider {
	case "onnx", "openai", "mock":
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: onnx, openai, mock)", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
