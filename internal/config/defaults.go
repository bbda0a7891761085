package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Artifact.Path == "" {
		cfg.Artifact.Path = "/usr/local/var/intently/data/index.bin"
	}
	if cfg.Classifier.K == 0 {
		cfg.Classifier.K = 5
	}
	if cfg.Classifier.Threshold == nil {
		t := 0.5
		cfg.Classifier.Threshold = &t
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-MiniLM-L6-v2"
	}
	if cfg.Embedding.Provider == "onnx" && cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/intently/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = "intently:emb:" + cfg.Embedding.Model + ":"
	}
	if cfg.Corpus.Table == "" {
		cfg.Corpus.Table = "examples"
	}
}
