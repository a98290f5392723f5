package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kbase/internal/models"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
chunking:
  max_length: 256
  overlap: 0
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Chunking.MaxLength != 256 {
		t.Errorf("max_length = %d, want 256", cfg.Chunking.MaxLength)
	}
	if got := cfg.Chunking.OverlapOrDefault(); got != 0 {
		t.Errorf("explicit overlap 0 should be kept, got %d", got)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  snapshot_dir: "./data/snapshot"
  catalog_path: "./data/db/catalog.db"
sources:
  files: ["./docs/flutter_concepts.md", "/abs/dart_concepts.md"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "snapshot"); cfg.Storage.SnapshotDir != want {
		t.Errorf("snapshot_dir = %s, want %s", cfg.Storage.SnapshotDir, want)
	}
	if want := filepath.Join(dir, "data", "snapshot", "kb.index"); cfg.Storage.IndexPath() != want {
		t.Errorf("IndexPath() = %s, want %s", cfg.Storage.IndexPath(), want)
	}
	if len(cfg.Sources.Files) != 2 {
		t.Fatalf("sources: got %d", len(cfg.Sources.Files))
	}
	if want := filepath.Join(dir, "docs", "flutter_concepts.md"); cfg.Sources.Files[0] != want {
		t.Errorf("source[0] = %s, want %s", cfg.Sources.Files[0], want)
	}
	if cfg.Sources.Files[1] != "/abs/dart_concepts.md" {
		t.Errorf("absolute source changed: %s", cfg.Sources.Files[1])
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: got %+v", cfg.Server)
	}
	if cfg.Chunking.MaxLength != 512 || cfg.Chunking.OverlapOrDefault() != 50 {
		t.Errorf("default chunking: max=%d overlap=%d", cfg.Chunking.MaxLength, cfg.Chunking.OverlapOrDefault())
	}
	if cfg.Chunking.ParagraphSeparator != "\n\n" {
		t.Errorf("default paragraph separator: %q", cfg.Chunking.ParagraphSeparator)
	}
	if cfg.Retrieval.TopK != 3 || cfg.Retrieval.IndexType != "memory" {
		t.Errorf("default retrieval: %+v", cfg.Retrieval)
	}
	if cfg.Embedding.Provider != "onnx" || cfg.Embedding.Dimensions != 384 {
		t.Errorf("default embedding: %+v", cfg.Embedding)
	}
	if cfg.Storage.IndexFile != "kb.index" || cfg.Storage.MetadataFile != "kb.meta" {
		t.Errorf("default artifact names: %+v", cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	intPtr := func(v int) *int { return &v }
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals max length", func(c *Config) { c.Chunking.MaxLength = 50; c.Chunking.Overlap = intPtr(50) }},
		{"overlap larger than max length", func(c *Config) { c.Chunking.MaxLength = 15; c.Chunking.Overlap = intPtr(20) }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = intPtr(-1) }},
		{"negative max length", func(c *Config) { c.Chunking.MaxLength = -1 }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "word2vec" }},
		{"same artifact names", func(c *Config) { c.Storage.MetadataFile = c.Storage.IndexFile }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, models.ErrConfiguration) {
				t.Errorf("Validate() = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestConfig_Summary(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Storage.SnapshotDir = "/var/lib/kbase"
	cfg.Sources.Files = []string{"/docs/faq.md", "/docs/policies.pdf"}

	got := cfg.Summary()
	want := map[string]any{
		"embedding_provider":   "onnx",
		"embedding_dimensions": 384,
		"max_length":           512,
		"overlap":              50,
		"top_k":                3,
		"index_type":           "memory",
		"index_path":           filepath.Join("/var/lib/kbase", "kb.index"),
		"metadata_path":        filepath.Join("/var/lib/kbase", "kb.meta"),
		"sources":              2,
	}
	if len(got) != len(want) {
		t.Errorf("summary has %d keys, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("summary[%q] = %v, want %v", k, got[k], v)
		}
	}
}
