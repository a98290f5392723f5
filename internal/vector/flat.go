package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/hyperjump/kbase/internal/models"
)

const (
	// maxPrealloc bounds slice preallocation while decoding so a corrupt count cannot exhaust memory.
	maxPrealloc = 1 << 16
	// maxDimensions rejects absurd dimensions read from a damaged header.
	maxDimensions = 1 << 16
)

// FlatIndex is an exact (brute-force) L2 index kept in memory. It is the persisted form of
// the index store and the default searcher.
type FlatIndex struct {
	dimensions int
	ids        []int64
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{
		dimensions: dimensions,
		ids:        make([]int64, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeMemory)
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Add appends vectors with the given IDs. IDs must be non-negative.
func (f *FlatIndex) Add(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range ids {
		if id < 0 {
			return fmt.Errorf("invalid vector id %d", id)
		}
		if len(vectors[i]) != f.dimensions {
			return fmt.Errorf("%w: vector dimension mismatch: got %d, expected %d", models.ErrConfiguration, len(vectors[i]), f.dimensions)
		}
		vec := make([]float32, f.dimensions)
		copy(vec, vectors[i])
		f.ids = append(f.ids, id)
		f.vectors = append(f.vectors, vec)
	}
	return nil
}

// Search returns up to k entries ordered by ascending distance; ties go to the lower ID.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query dimension mismatch: got %d, expected %d", models.ErrConfiguration, len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	scored := make([]Result, len(f.ids))
	for i, vec := range f.vectors {
		scored[i] = Result{ID: f.ids[i], Distance: SquaredL2(query, vec)}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Distance != scored[j].Distance {
			return scored[i].Distance < scored[j].Distance
		}
		return scored[i].ID < scored[j].ID
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Each calls fn for every entry in insertion order.
func (f *FlatIndex) Each(fn func(id int64, vec []float32)) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i, id := range f.ids {
		fn(id, f.vectors[i])
	}
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}

// WriteTo encodes the index as: dimension (4), count (8), then per entry id (8) and
// vector (dimension*4 bytes), all little-endian.
func (f *FlatIndex) WriteTo(w io.Writer) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	bw := bufio.NewWriter(w)
	var n int64
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(f.dimensions))
	binary.LittleEndian.PutUint64(hdr[4:12], uint64(len(f.ids)))
	m, err := bw.Write(hdr[:])
	n += int64(m)
	if err != nil {
		return n, fmt.Errorf("write header: %w", err)
	}
	var idBuf [8]byte
	for i, id := range f.ids {
		binary.LittleEndian.PutUint64(idBuf[:], uint64(id))
		m, err = bw.Write(idBuf[:])
		n += int64(m)
		if err != nil {
			return n, fmt.Errorf("write id: %w", err)
		}
		m, err = bw.Write(float32SliceToBytes(f.vectors[i]))
		n += int64(m)
		if err != nil {
			return n, fmt.Errorf("write vector: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("flush index: %w", err)
	}
	return n, nil
}

// ReadFlatIndex decodes an index written by WriteTo. Truncated or malformed input
// yields an error wrapping models.ErrCorruptSnapshot.
func ReadFlatIndex(r io.Reader) (*FlatIndex, error) {
	br := bufio.NewReader(r)
	var hdr [12]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: read index header: %v", models.ErrCorruptSnapshot, err)
	}
	dim := int(binary.LittleEndian.Uint32(hdr[0:4]))
	count := binary.LittleEndian.Uint64(hdr[4:12])
	if dim <= 0 || dim > maxDimensions {
		return nil, fmt.Errorf("%w: invalid dimension %d", models.ErrCorruptSnapshot, dim)
	}
	f := &FlatIndex{dimensions: dim}
	prealloc := count
	if prealloc > maxPrealloc {
		prealloc = maxPrealloc
	}
	f.ids = make([]int64, 0, prealloc)
	f.vectors = make([][]float32, 0, prealloc)
	var idBuf [8]byte
	buf := make([]byte, dim*4)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(br, idBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: read id %d: %v", models.ErrCorruptSnapshot, i, err)
		}
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: read vector %d: %v", models.ErrCorruptSnapshot, i, err)
		}
		f.ids = append(f.ids, int64(binary.LittleEndian.Uint64(idBuf[:])))
		f.vectors = append(f.vectors, bytesToFloat32Slice(buf))
	}
	return f, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
