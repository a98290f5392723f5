package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kbase/internal/embedding"
	"github.com/hyperjump/kbase/internal/models"
	"github.com/hyperjump/kbase/internal/snapshot"
	"github.com/hyperjump/kbase/internal/vector"
)

// mismatchRetryDelay is how long a load waits before re-reading a pair whose build IDs
// differ. A concurrent Save installs the index and metadata with two renames.
var mismatchRetryDelay = 50 * time.Millisecond

// SnapshotLoader returns a Loader that reads the snapshot pair from store, builds a
// searcher of indexType over it and opens the embedder with newEmbedder. The embedder
// dimension must equal the snapshot dimension.
func SnapshotLoader(store *snapshot.Store, indexType string, newEmbedder func() (embedding.Embedder, error)) Loader {
	return func(ctx context.Context) (*Resources, error) {
		snap, err := loadConsistent(ctx, store.Load)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		emb, err := newEmbedder()
		if err != nil {
			return nil, fmt.Errorf("%w: init embedder: %v", models.ErrUnavailable, err)
		}
		if emb.Dimensions() != snap.Dimensions() {
			_ = emb.Close()
			return nil, fmt.Errorf("%w: embedder %s produces %d dimensions, snapshot has %d",
				models.ErrConfiguration, emb.Name(), emb.Dimensions(), snap.Dimensions())
		}
		searcher, err := vector.FromFlat(ctx, indexType, snap.Index)
		if err != nil {
			_ = emb.Close()
			return nil, fmt.Errorf("build %s searcher: %w", indexType, err)
		}
		return &Resources{Snapshot: snap, Searcher: searcher, Embedder: emb}, nil
	}
}

// loadConsistent calls load and, if the pair was caught between the two renames of a
// Save, reads it once more after mismatchRetryDelay.
func loadConsistent(ctx context.Context, load func() (*snapshot.Snapshot, error)) (*snapshot.Snapshot, error) {
	snap, err := load()
	if !errors.Is(err, models.ErrSnapshotMismatch) {
		return snap, err
	}
	select {
	case <-ctx.Done():
		return nil, err
	case <-time.After(mismatchRetryDelay):
	}
	return load()
}
