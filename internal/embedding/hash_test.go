package embedding

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(16)
	ctx := context.Background()

	a, _ := e.Embed(ctx, "hello world")
	b, _ := e.Embed(ctx, "hello world")
	c, _ := e.Embed(ctx, "something else")
	if len(a) != 16 {
		t.Fatalf("len=%d, want 16", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should embed identically")
		}
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different texts should embed differently")
	}

	var sum float64
	for _, v := range a {
		sum += float64(v * v)
	}
	if math.Abs(sum-1) > 1e-4 {
		t.Errorf("norm^2=%v, want 1", sum)
	}
}

func TestHashEmbedder_Batch(t *testing.T) {
	e := NewHashEmbedder(8)
	ctx := context.Background()
	texts := []string{"a", "b", "c"}
	vecs, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	for i, text := range texts {
		single, _ := e.Embed(ctx, text)
		for j := range single {
			if vecs[i][j] != single[j] {
				t.Fatalf("batch[%d] differs from Embed(%q)", i, text)
			}
		}
	}
}

func TestHashEmbedder_Defaults(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != 384 {
		t.Errorf("Dimensions=%d, want 384", e.Dimensions())
	}
	if e.Name() != "hash-384" {
		t.Errorf("Name=%q", e.Name())
	}
}

func TestHashEmbedder_CanceledBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(4).EmbedBatch(ctx, []string{"x"}); err == nil {
		t.Error("expected error for canceled context")
	}
}
