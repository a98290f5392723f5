package config

const defaultOverlap = 50

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.SnapshotDir == "" {
		cfg.Storage.SnapshotDir = "/usr/local/var/kbase/data/snapshot"
	}
	if cfg.Storage.IndexFile == "" {
		cfg.Storage.IndexFile = "kb.index"
	}
	if cfg.Storage.MetadataFile == "" {
		cfg.Storage.MetadataFile = "kb.meta"
	}
	if cfg.Storage.CatalogPath == "" {
		cfg.Storage.CatalogPath = "/usr/local/var/kbase/data/db/catalog.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kbase/data/models/all-MiniLM-L6-v2.onnx"
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
	if cfg.Embedding.OpenAI.APIKeyEnv == "" {
		cfg.Embedding.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.OpenAI.Model == "" {
		cfg.Embedding.OpenAI.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.OpenAI.Concurrency == 0 {
		cfg.Embedding.OpenAI.Concurrency = 4
	}
	if cfg.Chunking.MaxLength == 0 {
		cfg.Chunking.MaxLength = 512
	}
	if cfg.Chunking.Overlap == nil {
		o := defaultOverlap
		cfg.Chunking.Overlap = &o
	}
	if cfg.Chunking.ParagraphSeparator == "" {
		cfg.Chunking.ParagraphSeparator = "\n\n"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.IndexType == "" {
		cfg.Retrieval.IndexType = "memory"
	}
}
