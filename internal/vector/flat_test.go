package vector

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kbase/internal/models"
)

func newTestFlat(t *testing.T) *FlatIndex {
	t.Helper()
	idx, err := NewFlatIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	vecs := [][]float32{
		{0, 0},
		{3, 4},
		{1, 0},
		{0, 1},
	}
	if err := idx.Add(context.Background(), []int64{0, 1, 2, 3}, vecs); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestFlatIndex_SearchOrder(t *testing.T) {
	idx := newTestFlat(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		query   []float32
		k       int
		wantIDs []int64
	}{
		{"nearest first", []float32{3, 4}, 1, []int64{1}},
		{"ties broken by id", []float32{0, 0}, 3, []int64{0, 2, 3}},
		{"k larger than size", []float32{0, 0}, 10, []int64{0, 2, 3, 1}},
		{"k zero", []float32{0, 0}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := idx.Search(ctx, tt.query, tt.k)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != len(tt.wantIDs) {
				t.Fatalf("len=%d, want %d", len(results), len(tt.wantIDs))
			}
			for i, r := range results {
				if r.ID != tt.wantIDs[i] {
					t.Errorf("results[%d].ID=%d, want %d", i, r.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestFlatIndex_SquaredDistance(t *testing.T) {
	idx := newTestFlat(t)
	results, err := idx.Search(context.Background(), []float32{0, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	last := results[len(results)-1]
	if last.ID != 1 || last.Distance != 25 {
		t.Errorf("last = %+v, want id 1 distance 25", last)
	}
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx := newTestFlat(t)
	ctx := context.Background()

	if _, err := idx.Search(ctx, []float32{1, 2, 3}, 1); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Search: expected ErrConfiguration, got %v", err)
	}
	if err := idx.Add(ctx, []int64{9}, [][]float32{{1}}); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Add: expected ErrConfiguration, got %v", err)
	}
}

func TestFlatIndex_RejectsNegativeID(t *testing.T) {
	idx, _ := NewFlatIndex(1)
	if err := idx.Add(context.Background(), []int64{-1}, [][]float32{{1}}); err == nil {
		t.Error("expected error for negative id")
	}
}

func TestFlatIndex_AddIsolatesCallerSlice(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	vec := []float32{1, 1}
	_ = idx.Add(context.Background(), []int64{0}, [][]float32{vec})
	vec[0] = 100

	results, _ := idx.Search(context.Background(), []float32{1, 1}, 1)
	if results[0].Distance != 0 {
		t.Errorf("stored vector changed with caller slice, distance=%v", results[0].Distance)
	}
}

func TestFlatIndex_WriteReadRoundTrip(t *testing.T) {
	idx := newTestFlat(t)
	var buf bytes.Buffer
	n, err := idx.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo n=%d, buffer has %d", n, buf.Len())
	}

	loaded, err := ReadFlatIndex(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != idx.Size() || loaded.Dimensions() != idx.Dimensions() {
		t.Fatalf("loaded size=%d dim=%d", loaded.Size(), loaded.Dimensions())
	}

	ctx := context.Background()
	want, _ := idx.Search(ctx, []float32{0.5, 0.5}, 4)
	got, _ := loaded.Search(ctx, []float32{0.5, 0.5}, 4)
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("result %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadFlatIndex_Truncated(t *testing.T) {
	idx := newTestFlat(t)
	var buf bytes.Buffer
	if _, err := idx.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	for _, cut := range []int{0, 5, 12, len(data) - 1} {
		_, err := ReadFlatIndex(bytes.NewReader(data[:cut]))
		if !errors.Is(err, models.ErrCorruptSnapshot) {
			t.Errorf("cut at %d: expected ErrCorruptSnapshot, got %v", cut, err)
		}
	}
}

func TestSquaredL2(t *testing.T) {
	if d := SquaredL2([]float32{1, 2}, []float32{4, 6}); d != 25 {
		t.Errorf("SquaredL2=%v, want 25", d)
	}
}
