//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/MetaIndexes_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/hyperjump/kbase/internal/models"
)

// FAISSIndex wraps FAISS IndexIDMap over IndexFlatL2: exact L2 search with caller-assigned
// int64 IDs. Unfilled result slots come back with ID -1.
type FAISSIndex struct {
	flat       *C.FaissIndex
	index      *C.FaissIndex
	dimensions int
	mu         sync.RWMutex
}

// NewFAISSIndex creates an empty FAISS index with the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	var flat *C.FaissIndex
	if ret := C.faiss_IndexFlatL2_new_with((**C.FaissIndexFlatL2)(unsafe.Pointer(&flat)), C.idx_t(dimensions)); ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS flat index: %s", faissLastError())
	}
	var idmap *C.FaissIndex
	if ret := C.faiss_IndexIDMap_new((**C.FaissIndexIDMap)(unsafe.Pointer(&idmap)), flat); ret != 0 {
		C.faiss_Index_free(flat)
		return nil, fmt.Errorf("failed to create FAISS id map: %s", faissLastError())
	}

	return &FAISSIndex{
		flat:       flat,
		index:      idmap,
		dimensions: dimensions,
	}, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Add appends vectors with the given IDs.
func (f *FAISSIndex) Add(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(vectors)
	flatVectors := make([]float32, n*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("%w: vector dimension mismatch: got %d, expected %d", models.ErrConfiguration, len(vec), f.dimensions)
		}
		if ids[i] < 0 {
			return fmt.Errorf("invalid vector id %d", ids[i])
		}
		copy(flatVectors[i*f.dimensions:(i+1)*f.dimensions], vec)
	}

	ret := C.faiss_Index_add_with_ids(
		f.index,
		C.idx_t(n),
		(*C.float)(unsafe.Pointer(&flatVectors[0])),
		(*C.idx_t)(unsafe.Pointer(&ids[0])),
	)
	if ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return nil
}

// Search returns k slots ordered by ascending distance. Slots FAISS could not fill carry ID -1.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query dimension mismatch: got %d, expected %d", models.ErrConfiguration, len(query), f.dimensions)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if k <= 0 || int(C.faiss_Index_ntotal(f.index)) == 0 {
		return nil, nil
	}

	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	results := make([]Result, k)
	for i := 0; i < k; i++ {
		results[i] = Result{ID: labels[i], Distance: distances[i]}
	}
	return results, nil
}

// Size returns the number of vectors in the index.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.index == nil {
		return 0
	}
	return int(C.faiss_Index_ntotal(f.index))
}

// Dimensions returns the vector dimension.
func (f *FAISSIndex) Dimensions() int {
	return f.dimensions
}

// Close frees the id map and the flat index it wraps.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	if f.flat != nil {
		C.faiss_Index_free(f.flat)
		f.flat = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
