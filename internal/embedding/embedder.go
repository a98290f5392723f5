// Package embedding turns text into fixed-length vectors. Providers: ONNX (local model),
// OpenAI-compatible HTTP, and a deterministic hash embedder.
package embedding

import "context"

// Embedder produces vector embeddings for text. Every vector from one embedder has
// Dimensions() elements, and EmbedBatch returns one vector per input in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
	Close() error
}

// embedEach embeds texts one at a time with e.Embed.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
