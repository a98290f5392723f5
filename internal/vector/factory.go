package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/kbase/internal/models"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses the in-process exact flat index.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS uses FAISS IndexIDMap(IndexFlatL2). Requires the FAISS library and -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewIndex creates an empty index of the specified type.
func NewIndex(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewFlatIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("%w: unknown index type: %s (supported: memory, faiss)", models.ErrConfiguration, indexType)
	}
}

// FromFlat returns a searcher of the given type over the entries of a loaded flat index.
// For "memory" the flat index itself is returned.
func FromFlat(ctx context.Context, indexType string, flat *FlatIndex) (Index, error) {
	if IndexType(indexType) == IndexTypeMemory || indexType == "" {
		return flat, nil
	}
	idx, err := NewIndex(indexType, flat.Dimensions())
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, flat.Size())
	vecs := make([][]float32, 0, flat.Size())
	flat.Each(func(id int64, vec []float32) {
		ids = append(ids, id)
		vecs = append(vecs, vec)
	})
	if err := idx.Add(ctx, ids, vecs); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("populate %s index: %w", indexType, err)
	}
	return idx, nil
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
