package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hyperjump/kbase/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIBatchSize is the number of texts sent per embeddings request.
const openAIBatchSize = 64

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. Batches are split into
// requests that run on a bounded number of workers; results keep input order.
type OpenAIEmbedder struct {
	client      *openai.Client
	model       string
	dimensions  int
	concurrency int
	logger      *zap.Logger
}

// OpenAIOptions configures NewOpenAIEmbedder.
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Dimensions  int
	Concurrency int
	Logger      *zap.Logger
}

// NewOpenAIEmbedder creates an embedder for the given model. The API key is required.
func NewOpenAIEmbedder(opts OpenAIOptions) (*OpenAIEmbedder, error) {
	if opts.APIKey == "" {
		return nil, errors.New("OpenAI API key is not set")
	}
	if opts.Dimensions <= 0 {
		return nil, errors.New("dimensions must be positive")
	}
	if opts.Model == "" {
		opts.Model = string(openai.SmallEmbedding3)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	return &OpenAIEmbedder{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		dimensions:  opts.Dimensions,
		concurrency: opts.Concurrency,
		logger:      utils.OrNop(opts.Logger),
	}, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in requests of up to openAIBatchSize inputs.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	sem := make(chan struct{}, e.concurrency)
	for start := 0; start < len(texts); start += openAIBatchSize {
		end := start + openAIBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			defer func() { <-sem }()
			vecs, err := e.request(ctx, texts[start:end])
			if err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			copy(out[start:end], vecs)
			e.logger.Debug("embedded batch", zap.Int("from", start), zap.Int("to", end), zap.Int("total", len(texts)))
		}(start, end)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// request sends one embeddings call and returns vectors ordered like texts.
func (e *OpenAIEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	}
	if strings.HasPrefix(e.model, "text-embedding-3") {
		req.Dimensions = e.dimensions
	}
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI embeddings request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errBatchSize(len(texts), len(resp.Data))
	}
	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || vecs[d.Index] != nil {
			return nil, fmt.Errorf("OpenAI embeddings response has invalid index %d", d.Index)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("OpenAI embedding has %d dimensions, expected %d", len(d.Embedding), e.dimensions)
		}
		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		utils.NormalizeL2(v)
		vecs[d.Index] = v
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "openai:" followed by the model name.
func (e *OpenAIEmbedder) Name() string {
	return "openai:" + e.model
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

func errBatchSize(want, got int) error {
	return fmt.Errorf("embedding provider returned %d vectors for %d texts", got, want)
}
