// Package search provides the retrieval engine: it loads a snapshot once, embeds queries
// and returns the nearest fragments as a tagged result.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kbase/internal/embedding"
	"github.com/hyperjump/kbase/internal/models"
	"github.com/hyperjump/kbase/internal/snapshot"
	"github.com/hyperjump/kbase/internal/vector"
	"go.uber.org/zap"
)

// State is the engine lifecycle state. Ready and Failed are terminal.
type State int32

const (
	StateUnloaded State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unloaded"
	}
}

// Resources is everything a Ready engine queries against.
type Resources struct {
	Snapshot *snapshot.Snapshot
	Searcher vector.Index
	Embedder embedding.Embedder
}

// Close releases the searcher and the embedder.
func (r *Resources) Close() error {
	var errs []error
	if r.Searcher != nil {
		errs = append(errs, r.Searcher.Close())
	}
	if r.Embedder != nil {
		errs = append(errs, r.Embedder.Close())
	}
	return errors.Join(errs...)
}

// Loader produces the engine's resources. It runs at most once per engine.
type Loader func(ctx context.Context) (*Resources, error)

// Engine answers retrieval queries against a snapshot loaded on first use.
// It is safe for concurrent use.
type Engine struct {
	loader   Loader
	logger   *zap.Logger
	defaultK int

	once    sync.Once
	state   atomic.Int32
	res     *Resources
	loadErr error
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for load failures, consistency violations and query errors.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithDefaultK sets the number of fragments returned when a query passes k <= 0.
func WithDefaultK(k int) EngineOption {
	return func(e *Engine) { e.defaultK = k }
}

// NewEngine creates an unloaded engine. Nothing is loaded until Init or the first Query.
func NewEngine(loader Loader, opts ...EngineOption) *Engine {
	e := &Engine{
		loader:   loader,
		logger:   zap.NewNop(),
		defaultK: models.DefaultTopK,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init loads the engine if it has not been loaded yet and returns the load error, if any.
// Concurrent callers share a single load.
func (e *Engine) Init(ctx context.Context) error {
	e.once.Do(func() {
		start := time.Now()
		// A canceled caller must not leave the engine permanently Failed.
		res, err := e.loader(context.WithoutCancel(ctx))
		if err == nil && res == nil {
			err = errors.New("loader returned no resources")
		}
		if err != nil {
			e.loadErr = err
			e.state.Store(int32(StateFailed))
			e.logger.Error("knowledge base failed to load", zap.Error(err))
			return
		}
		e.res = res
		e.state.Store(int32(StateReady))
		e.logger.Info("knowledge base loaded",
			zap.String("build_id", res.Snapshot.BuildID.String()),
			zap.Int("fragments", res.Snapshot.Size()),
			zap.Int("dimensions", res.Snapshot.Dimensions()),
			zap.String("embedder", res.Embedder.Name()),
			zap.String("index_type", res.Searcher.Type()),
			zap.Duration("took", time.Since(start)))
	})
	return e.loadErr
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Query embeds text, finds the k nearest fragments (the engine default when k <= 0) and
// joins their texts in distance order. Failures never escape as errors: a Failed engine
// or a per-call embedding or search error yields StatusUnavailable.
func (e *Engine) Query(ctx context.Context, text string, k int) *models.QueryResult {
	if err := e.Init(ctx); err != nil {
		return &models.QueryResult{Status: models.StatusUnavailable}
	}
	snap := e.res.Snapshot
	if snap.Size() == 0 || e.res.Searcher.Size() == 0 {
		return &models.QueryResult{Status: models.StatusEmpty}
	}
	k = normalizeK(k, e.defaultK)

	vec, err := e.res.Embedder.Embed(ctx, text)
	if err != nil {
		e.logger.Warn("query embedding failed", zap.Error(err))
		return &models.QueryResult{Status: models.StatusUnavailable}
	}
	results, err := e.res.Searcher.Search(ctx, vec, k)
	if err != nil {
		e.logger.Warn("index search failed", zap.Error(err))
		return &models.QueryResult{Status: models.StatusUnavailable}
	}

	hits := make([]*models.Hit, 0, len(results))
	for _, r := range results {
		if r.ID == vector.NoResult {
			continue
		}
		fragment, ok := snap.Fragment(r.ID)
		if !ok {
			e.logger.Warn("index returned id outside metadata",
				zap.Int64("id", r.ID),
				zap.Int("fragments", snap.Size()),
				zap.String("build_id", snap.BuildID.String()))
			continue
		}
		hits = append(hits, &models.Hit{ID: r.ID, Distance: r.Distance, Text: fragment})
	}
	if len(hits) == 0 {
		return &models.QueryResult{Status: models.StatusNotFound}
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	e.logger.Debug("query answered", zap.Int("k", k), zap.Int("hits", len(hits)))
	return &models.QueryResult{
		Status:  models.StatusFound,
		Context: strings.Join(texts, models.ContextDelimiter),
		Hits:    hits,
	}
}

// Stats describes the loaded knowledge base.
type Stats struct {
	State      string    `json:"state"`
	Error      string    `json:"error,omitempty"`
	BuildID    string    `json:"build_id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	Fragments  int       `json:"fragments"`
	Dimensions int       `json:"dimensions,omitempty"`
	Embedder   string    `json:"embedder,omitempty"`
	IndexType  string    `json:"index_type,omitempty"`
}

// Stats reports the engine state without triggering a load.
func (e *Engine) Stats() Stats {
	st := e.State()
	s := Stats{State: st.String()}
	switch st {
	case StateFailed:
		s.Error = e.loadErr.Error()
	case StateReady:
		snap := e.res.Snapshot
		if snap.BuildID != uuid.Nil {
			s.BuildID = snap.BuildID.String()
		}
		s.CreatedAt = snap.CreatedAt
		s.Fragments = snap.Size()
		s.Dimensions = snap.Dimensions()
		s.Embedder = e.res.Embedder.Name()
		s.IndexType = e.res.Searcher.Type()
	}
	return s
}

// Close releases loaded resources. The engine must not be queried afterwards.
func (e *Engine) Close() error {
	if e.State() != StateReady {
		return nil
	}
	return e.res.Close()
}
