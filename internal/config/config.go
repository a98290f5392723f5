// Package config provides configuration loading and structs for kbase.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kbase/internal/models"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Sources   SourcesConfig   `yaml:"sources"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the snapshot location and the build catalog database path.
type StorageConfig struct {
	SnapshotDir  string `yaml:"snapshot_dir"`
	IndexFile    string `yaml:"index_file"`
	MetadataFile string `yaml:"metadata_file"`
	CatalogPath  string `yaml:"catalog_path"`
}

// IndexPath returns the full path of the index artifact.
func (s *StorageConfig) IndexPath() string {
	return filepath.Join(s.SnapshotDir, s.IndexFile)
}

// MetadataPath returns the full path of the metadata artifact.
func (s *StorageConfig) MetadataPath() string {
	return filepath.Join(s.SnapshotDir, s.MetadataFile)
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string       `yaml:"provider"` // onnx, openai, hash
	ModelPath  string       `yaml:"model_path"`
	Dimensions int          `yaml:"dimensions"`
	MaxTokens  int          `yaml:"max_tokens"`
	CacheSize  int          `yaml:"cache_size"`
	OpenAI     OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds settings for an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Concurrency int    `yaml:"concurrency"`
}

// ChunkingConfig holds fragment sizing. Lengths are in characters.
type ChunkingConfig struct {
	MaxLength          int    `yaml:"max_length"`
	Overlap            *int   `yaml:"overlap"`
	ParagraphSeparator string `yaml:"paragraph_separator"`
}

// OverlapOrDefault returns the configured overlap; an explicit 0 disables overlap.
func (c *ChunkingConfig) OverlapOrDefault() int {
	if c.Overlap != nil {
		return *c.Overlap
	}
	return defaultOverlap
}

// RetrievalConfig holds query-side settings.
type RetrievalConfig struct {
	TopK      int    `yaml:"top_k"`
	IndexType string `yaml:"index_type"` // memory, faiss
}

// SourcesConfig lists the reference documents a build reads.
type SourcesConfig struct {
	Files []string `yaml:"files"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
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

	configDir := filepath.Dir(path)
	cfg.Storage.SnapshotDir = expandPath(cfg.Storage.SnapshotDir, configDir)
	cfg.Storage.CatalogPath = expandPath(cfg.Storage.CatalogPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Sources.Files {
		cfg.Sources.Files[i] = expandPath(cfg.Sources.Files[i], configDir)
	}

	return &cfg, nil
}

// Validate checks settings that would make a build or a query meaningless.
// All failures wrap models.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Chunking.MaxLength <= 0 {
		return fmt.Errorf("%w: chunking.max_length must be positive, got %d", models.ErrConfiguration, c.Chunking.MaxLength)
	}
	overlap := c.Chunking.OverlapOrDefault()
	if overlap < 0 || overlap >= c.Chunking.MaxLength {
		return fmt.Errorf("%w: chunking.overlap must be in [0, %d), got %d", models.ErrConfiguration, c.Chunking.MaxLength, overlap)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", models.ErrConfiguration)
	}
	switch c.Embedding.Provider {
	case "onnx", "openai", "hash":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q (supported: onnx, openai, hash)", models.ErrConfiguration, c.Embedding.Provider)
	}
	if c.Storage.IndexFile == c.Storage.MetadataFile {
		return fmt.Errorf("%w: index_file and metadata_file must differ", models.ErrConfiguration)
	}
	return nil
}

// Summary returns the settings reported by status output.
func (c *Config) Summary() map[string]any {
	return map[string]any{
		"embedding_provider":   c.Embedding.Provider,
		"embedding_dimensions": c.Embedding.Dimensions,
		"max_length":           c.Chunking.MaxLength,
		"overlap":              c.Chunking.OverlapOrDefault(),
		"top_k":                c.Retrieval.TopK,
		"index_type":           c.Retrieval.IndexType,
		"index_path":           c.Storage.IndexPath(),
		"metadata_path":        c.Storage.MetadataPath(),
		"sources":              len(c.Sources.Files),
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
