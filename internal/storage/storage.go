// Package storage defines the build catalog: a history of snapshot builds and the
// outcome for each source document.
package storage

import (
	"context"

	"github.com/hyperjump/kbase/internal/models"
)

// Catalog records build runs. It is an audit trail and is never read on the query path.
type Catalog interface {
	// RecordBuild stores a build and its per-source reports in one transaction.
	RecordBuild(ctx context.Context, build *models.BuildRecord) error
	// LatestBuild returns the most recent build with its sources, or ErrNoBuilds.
	LatestBuild(ctx context.Context) (*models.BuildRecord, error)
	// ListBuilds returns builds newest first, without sources.
	ListBuilds(ctx context.Context, offset, limit int) ([]*models.BuildRecord, error)
	SourcesForBuild(ctx context.Context, buildID string) ([]*models.SourceReport, error)
	CountBuilds(ctx context.Context) (int64, error)

	Close() error
}
