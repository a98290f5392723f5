package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kbase/internal/embedding"
	"github.com/hyperjump/kbase/internal/extract"
	"github.com/hyperjump/kbase/internal/fileid"
	"github.com/hyperjump/kbase/internal/models"
	"github.com/hyperjump/kbase/internal/snapshot"
	"github.com/hyperjump/kbase/internal/storage"
	"github.com/hyperjump/kbase/internal/vector"
	"go.uber.org/zap"
)

// Builder embeds fragments and persists them as a snapshot.
type Builder struct {
	embedder  embedding.Embedder
	store     *snapshot.Store
	chunker   *Chunker
	extractor *extract.Extractor
	catalog   storage.Catalog // optional
	logger    *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for build progress.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithCatalog records every completed build in c.
func WithCatalog(c storage.Catalog) BuilderOption {
	return func(b *Builder) { b.catalog = c }
}

// WithExtractor sets the extractor used by BuildFromFiles. Without one, files are read as plain text.
func WithExtractor(e *extract.Extractor) BuilderOption {
	return func(b *Builder) { b.extractor = e }
}

// NewBuilder creates a builder that embeds with embedder, chunks with chunker and
// writes through store.
func NewBuilder(embedder embedding.Embedder, store *snapshot.Store, chunker *Chunker, opts ...BuilderOption) *Builder {
	b := &Builder{
		embedder: embedder,
		store:    store,
		chunker:  chunker,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build embeds fragments in one batch, assigns IDs 0..n-1 in order and replaces the
// persisted snapshot. Empty input returns models.ErrNothingToIndex without touching disk.
func (b *Builder) Build(ctx context.Context, fragments []string) (*snapshot.Snapshot, error) {
	snap, _, err := b.build(ctx, fragments, nil)
	return snap, err
}

// BuildFromFiles extracts every path, chunks it paragraph by paragraph and builds one
// snapshot from the fragments of all readable documents. A path listed twice is read
// once. Unreadable documents are skipped and reported; if none can be read the build
// returns models.ErrNothingToIndex.
func (b *Builder) BuildFromFiles(ctx context.Context, paths []string) (*models.BuildReport, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no source documents configured", models.ErrConfiguration)
	}

	report := &models.BuildReport{Sources: make([]*models.SourceReport, 0, len(paths))}
	var fragments []string
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		id := fileid.SourceID(path)
		if seen[id] {
			b.logger.Debug("duplicate source ignored", zap.String("path", path))
			continue
		}
		seen[id] = true
		src := &models.SourceReport{ID: id, Path: path}
		report.Sources = append(report.Sources, src)

		text, err := b.extractContent(path)
		if err != nil {
			src.Status = models.SourceSkipped
			src.Error = err.Error()
			b.logger.Warn("skipping unreadable source", zap.String("path", path), zap.Error(err))
			continue
		}
		paragraphs, chunks := b.chunker.ChunkDocument(text)
		src.Status = models.SourceIndexed
		src.Digest = fileid.ContentDigest(text)
		src.Paragraphs = paragraphs
		src.Fragments = len(chunks)
		fragments = append(fragments, chunks...)
		b.logger.Info("source chunked",
			zap.String("path", path),
			zap.Int("paragraphs", paragraphs),
			zap.Int("fragments", len(chunks)))
	}

	if report.IndexedSources() == 0 {
		return report, fmt.Errorf("%w: none of %d sources could be read", models.ErrNothingToIndex, len(report.Sources))
	}
	_, record, err := b.build(ctx, fragments, report.Sources)
	if err != nil {
		return report, err
	}
	report.Build = record
	return report, nil
}

func (b *Builder) build(ctx context.Context, fragments []string, sources []*models.SourceReport) (*snapshot.Snapshot, *models.BuildRecord, error) {
	if len(fragments) == 0 {
		return nil, nil, models.ErrNothingToIndex
	}
	for i, f := range fragments {
		if strings.TrimSpace(f) == "" {
			return nil, nil, fmt.Errorf("%w: fragment %d is blank", models.ErrConfiguration, i)
		}
	}

	unlock, err := b.store.Lock()
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	b.logger.Info("embedding fragments", zap.Int("fragments", len(fragments)), zap.String("embedder", b.embedder.Name()))
	vectors, err := b.embedder.EmbedBatch(ctx, fragments)
	if err != nil {
		return nil, nil, fmt.Errorf("embed fragments: %w", err)
	}
	if len(vectors) != len(fragments) {
		return nil, nil, fmt.Errorf("%w: embedder returned %d vectors for %d fragments", models.ErrConfiguration, len(vectors), len(fragments))
	}
	dims := b.embedder.Dimensions()
	for i, v := range vectors {
		if len(v) != dims {
			return nil, nil, fmt.Errorf("%w: vector %d has %d dimensions, embedder reports %d", models.ErrConfiguration, i, len(v), dims)
		}
	}

	index, err := vector.NewFlatIndex(dims)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	ids := make([]int64, len(fragments))
	for i := range ids {
		ids[i] = int64(i)
	}
	if err := index.Add(ctx, ids, vectors); err != nil {
		return nil, nil, fmt.Errorf("add vectors: %w", err)
	}

	snap, err := snapshot.New(index, fragments)
	if err != nil {
		return nil, nil, err
	}
	if err := b.store.Save(snap); err != nil {
		return nil, nil, fmt.Errorf("save snapshot: %w", err)
	}

	record := &models.BuildRecord{
		ID:           snap.BuildID.String(),
		CreatedAt:    snap.CreatedAt,
		Fragments:    snap.Size(),
		Dimensions:   snap.Dimensions(),
		Embedder:     b.embedder.Name(),
		IndexPath:    b.store.IndexPath(),
		MetadataPath: b.store.MetadataPath(),
		Sources:      sources,
	}
	if b.catalog != nil {
		if err := b.catalog.RecordBuild(ctx, record); err != nil {
			b.logger.Warn("failed to record build in catalog", zap.String("build_id", record.ID), zap.Error(err))
		}
	}
	b.logger.Info("build complete",
		zap.String("build_id", record.ID),
		zap.Int("fragments", record.Fragments),
		zap.Int("dimensions", record.Dimensions))
	return snap, record, nil
}

func (b *Builder) extractContent(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a regular file: %s", path)
	}
	if b.extractor != nil {
		return b.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// ExpandSources resolves the configured source list into files. Directories are walked
// recursively for files with a supported extension; files are kept as given.
func ExpandSources(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			if extensionAllowed(filepath.Ext(path), extract.SupportedExtensions()) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return out, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
