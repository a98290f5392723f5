//go:build faiss && cgo
// +build faiss,cgo

package vector

import (
	"context"
	"testing"
)

func TestFAISSIndex_AddSearch(t *testing.T) {
	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, []int64{0, 1, 2}, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d, want 3", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 0 || results[1].ID != 1 {
		t.Errorf("order = %v, want [0 1]", results)
	}
	if results[0].Distance != 0 {
		t.Errorf("exact match distance = %v, want 0", results[0].Distance)
	}
}

func TestFAISSIndex_UnfilledSlots(t *testing.T) {
	idx, err := NewFAISSIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	if err := idx.Add(ctx, []int64{7}, [][]float32{{1, 0}}); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(results))
	}
	if results[0].ID != 7 {
		t.Errorf("first slot = %d, want 7", results[0].ID)
	}
	for _, r := range results[1:] {
		if r.ID != NoResult {
			t.Errorf("unfilled slot = %d, want %d", r.ID, NoResult)
		}
	}
}

func TestFAISSIndex_SearchEmpty(t *testing.T) {
	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestFAISSIndex_DimensionMismatch(t *testing.T) {
	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	if err := idx.Add(context.Background(), []int64{0}, [][]float32{{1, 0}}); err == nil {
		t.Error("expected error for wrong dimension")
	}
}
