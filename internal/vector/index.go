// Package vector provides the index store: integer fragment IDs mapped to vectors with
// exact k-nearest-neighbor search by Euclidean distance.
package vector

import "context"

// NoResult is the ID a search reports for an unfilled result slot.
const NoResult int64 = -1

// Index defines vector storage and nearest-neighbor search.
type Index interface {
	Add(ctx context.Context, ids []int64, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// Result is a single search hit. Distance is the squared Euclidean distance, the value
// FAISS IndexFlatL2 reports; smaller is closer.
type Result struct {
	ID       int64
	Distance float32
}
