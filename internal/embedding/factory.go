package embedding

import (
	"fmt"
	"os"

	"github.com/hyperjump/kbase/internal/config"
	"github.com/hyperjump/kbase/internal/models"
	"go.uber.org/zap"
)

// New creates the embedder selected by cfg.Provider, wrapped in an LRU cache when
// cfg.CacheSize is positive.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "onnx", "":
		var onnx *ONNXEmbedder
		onnx, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err == nil {
			e = onnx
		}
	case "openai":
		var oa *OpenAIEmbedder
		oa, err = NewOpenAIEmbedder(OpenAIOptions{
			APIKey:      os.Getenv(cfg.OpenAI.APIKeyEnv),
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Dimensions:  cfg.Dimensions,
			Concurrency: cfg.OpenAI.Concurrency,
			Logger:      logger,
		})
		if err == nil {
			e = oa
		}
	case "hash":
		e = NewHashEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s embedder: %w", cfg.Provider, err)
	}
	if logger != nil {
		logger.Info("embedder initialized",
			zap.String("name", e.Name()),
			zap.Int("dimensions", e.Dimensions()),
			zap.Int("cache_size", cfg.CacheSize))
	}
	return NewCachedEmbedder(e, cfg.CacheSize), nil
}
